package jsonrpc

// RequestMessage is a request for method M with parameters of type P.
type RequestMessage[M Method, P any] struct {
	id     ID
	params *P
}

// NewRequest constructs a request. A nil params is omitted from the wire.
func NewRequest[M Method, P any](id ID, params *P) *RequestMessage[M, P] {
	return &RequestMessage[M, P]{id: id, params: params}
}

func (r *RequestMessage[M, P]) ID() ID {
	return r.id
}

// Method returns the method name of M.
func (r *RequestMessage[M, P]) Method() string {
	return methodName[M]()
}

// Params returns the parameters and whether any were supplied.
func (r *RequestMessage[M, P]) Params() (P, bool) {
	if r.params == nil {
		var zero P
		return zero, false
	}
	return *r.params, true
}

func (r *RequestMessage[M, P]) MarshalJSON() ([]byte, error) {
	w := newEnvelopeWriter()
	if err := w.member("id", r.id); err != nil {
		return nil, err
	}
	if err := w.member("method", r.Method()); err != nil {
		return nil, err
	}
	if r.params != nil {
		if err := w.member("params", r.params); err != nil {
			return nil, err
		}
	}
	return w.bytes(), nil
}

func (r *RequestMessage[M, P]) UnmarshalJSON(data []byte) error {
	m, err := decodeMembers(data)
	if err != nil {
		return err
	}
	if err := m.expectMethod(methodName[M]()); err != nil {
		return err
	}
	id, err := m.id()
	if err != nil {
		return err
	}
	params, err := decodeParams[P](m)
	if err != nil {
		return err
	}
	r.id = id
	r.params = params
	return nil
}
