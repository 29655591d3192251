package instrument

// Device defines the interface for capacitance meter connections (real or mocked).
type Device interface {
	Open() error
	Close() error
	IsOpen() bool
	// ReadLine blocks up to the read timeout for a newline terminated line.
	// On timeout it returns whatever was received so far, possibly nothing.
	ReadLine() ([]byte, error)
	// Send writes p and returns once it has been transmitted.
	Send(p []byte) error
}

// Ensure Serial implements Device.
var _ Device = (*Serial)(nil)

// Ensure Mock implements Device.
var _ Device = (*Mock)(nil)
