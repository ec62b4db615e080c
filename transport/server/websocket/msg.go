package websocket

// MessageType represents the type of a message.
type MessageType int

const (
	// TextMessage represents a text message.
	TextMessage MessageType = 1
	// BinaryMessage represents a binary message.
	BinaryMessage MessageType = 2
)

var DefaultMessageType MessageType = TextMessage

// Message is one frame received on an endpoint connection.
type Message struct {
	MessageType  MessageType
	Message      []byte
	EndpointPath EndpointPath
	ConnId       ConnId
}

// EndpointMessage is sent to the listed connections of one endpoint, or to
// all of them when ConnIds is empty.
type EndpointMessage struct {
	MessageType MessageType
	Message     []byte
	ConnIds     []ConnId
}

func (m *EndpointMessage) messageType() MessageType {
	if m.MessageType == 0 {
		return DefaultMessageType
	}
	return m.MessageType
}
