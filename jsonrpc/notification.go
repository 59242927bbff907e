package jsonrpc

// NotificationMessage is a notification for method M with parameters of type
// P. Notifications carry no id and are never answered.
type NotificationMessage[M Method, P any] struct {
	params *P
}

// NewNotification constructs a notification. A nil params is omitted from the wire.
func NewNotification[M Method, P any](params *P) *NotificationMessage[M, P] {
	return &NotificationMessage[M, P]{params: params}
}

func (n *NotificationMessage[M, P]) Method() string {
	return methodName[M]()
}

func (n *NotificationMessage[M, P]) Params() (P, bool) {
	if n.params == nil {
		var zero P
		return zero, false
	}
	return *n.params, true
}

func (n *NotificationMessage[M, P]) MarshalJSON() ([]byte, error) {
	w := newEnvelopeWriter()
	if err := w.member("method", n.Method()); err != nil {
		return nil, err
	}
	if n.params != nil {
		if err := w.member("params", n.params); err != nil {
			return nil, err
		}
	}
	return w.bytes(), nil
}

func (n *NotificationMessage[M, P]) UnmarshalJSON(data []byte) error {
	m, err := decodeMembers(data)
	if err != nil {
		return err
	}
	if err := m.expectMethod(methodName[M]()); err != nil {
		return err
	}
	params, err := decodeParams[P](m)
	if err != nil {
		return err
	}
	n.params = params
	return nil
}
