package model

// Item is a catalog entry offered for sale. The current shop sells a single
// fixed item; the schema carries owner/publisher references for when purchased
// items start being assigned to buyers.
type Item struct {
	ID          string
	Name        string
	Status      string
	URL         string
	OwnerID     *int64 // Telegram id of the current owner, if any
	PublisherID *int64 // Telegram id of the publishing user, if any
}
