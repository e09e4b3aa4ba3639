package core

// Client is one live connection as seen by the hub.
type Client struct {
	ID       string
	Nickname string
	Events   chan *Event
}

// NewClient constructs a client with an initialized event channel.
func NewClient(id, nickname string) *Client {
	return &Client{
		ID:       id,
		Nickname: nickname,
		Events:   make(chan *Event, 16),
	}
}
