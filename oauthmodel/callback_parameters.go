package oauthmodel

import "net/url"

// CallbackParameters are the query parameters the identity provider sends
// back to /callback.
type CallbackParameters struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

func ParseCallbackParameters(q url.Values) *CallbackParameters {
	return &CallbackParameters{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}
}
