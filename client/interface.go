package client

// Transport is one connected byte stream as the client sees it: raw
// frame bytes in and out, with Read bounded by the poll interval so
// Receive stays responsive to a local Close.
type Transport interface {
	Connect() error
	Read() ([]byte, error)
	Write(data []byte) error
	Close() error
}
