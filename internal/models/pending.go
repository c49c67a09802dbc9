package models

// PendingRegistration collects the answers of an in-progress work
// registration. It only becomes a Work once every prompt has been answered.
type PendingRegistration struct {
	GuildID          string
	Category         Category
	Name             string
	Synopsis         string
	Link             string
	Acknowledgements string

	// Donation is set when the guild had no donation message and the user
	// answered the prompt with something other than the skip keyword.
	Donation *string
}

func (p PendingRegistration) Work() Work {
	return Work{
		Category:         p.Category,
		Synopsis:         p.Synopsis,
		Link:             p.Link,
		Acknowledgements: p.Acknowledgements,
	}
}
