package email

// Message is one outbound email.
type Message struct {
	To       []string
	Subject  string
	Body     string
	HTMLBody string
}

// Sender is the delivery sink contract: one attempt, one outcome. The
// dispatcher records the outcome; a Sender never retries on its own.
type Sender interface {
	Send(msg *Message) error
}
