package api

// Response is the normalized result of a dispatched request.
//
// Body holds the decoded JSON object; it is an empty map for 202 Accepted
// and for bodiless success responses. A success body that is valid JSON but
// not an object leaves Body nil and Raw set, with DecodeErr nil. When a body
// is not JSON at all, Raw and DecodeErr carry the original bytes and the reason.
type Response struct {
	StatusCode int
	Body       map[string]any
	Raw        []byte
	DecodeErr  error
}

// Decoded reports whether Body holds a parsed JSON object. Raw non-object
// JSON reports false.
func (r *Response) Decoded() bool {
	return r != nil && r.DecodeErr == nil && r.Body != nil
}

// Subscribers returns the "subscribers" array of a subscriber-returning endpoint.
func (r *Response) Subscribers() []map[string]any {
	if !r.Decoded() {
		return nil
	}
	items, ok := r.Body["subscribers"].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
