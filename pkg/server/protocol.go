package server

import (
	"encoding/json"

	"github.com/vango-dev/querysync/internal/errors"
)

// Client message types.
const (
	MsgHello    = "hello"
	MsgNavigate = "navigate"
	MsgSet      = "set"
	MsgClear    = "clear"
	MsgUnmount  = "unmount"
)

// Server message types.
const (
	MsgReplace = "replace"
	MsgState   = "state"
	MsgError   = "error"
)

// ClientMessage is a message sent by the client.
type ClientMessage struct {
	Type string `json:"type"`

	// URL is the location for hello and navigate.
	URL string `json:"url,omitempty"`

	// Param is the query key of the param for set, clear and unmount.
	Param string `json:"param,omitempty"`

	// Value is the new value for set, in URL form.
	Value *string `json:"value,omitempty"`
}

// ServerMessage is a message sent to the client.
type ServerMessage struct {
	Type string `json:"type"`

	// URL is the current location for replace and state.
	URL string `json:"url,omitempty"`

	// Values maps each mounted param's query key to its store value in URL
	// form. Absent values are omitted.
	Values map[string]string `json:"values,omitempty"`

	// Error describes a rejected client message.
	Error *ErrorPayload `json:"error,omitempty"`
}

// ErrorPayload is the body of an error message.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DecodeClientMessage parses and checks one client message.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ClientMessage{}, errors.New("Q020").
			WithDetail("message is not valid JSON").
			Wrap(err)
	}

	switch msg.Type {
	case MsgHello, MsgNavigate:
		if msg.URL == "" {
			return msg, badMessage(msg.Type + " requires url")
		}
	case MsgSet:
		if msg.Param == "" || msg.Value == nil {
			return msg, badMessage("set requires param and value")
		}
	case MsgClear, MsgUnmount:
		if msg.Param == "" {
			return msg, badMessage(msg.Type + " requires param")
		}
	case "":
		return msg, badMessage("missing type")
	default:
		return msg, badMessage("unknown type " + msg.Type)
	}
	return msg, nil
}

func badMessage(detail string) *errors.Error {
	return errors.New("Q020").WithDetail(detail)
}

// errorMessage converts err into an error message for the client.
func errorMessage(err error) ServerMessage {
	qe := errors.FromError(err, "Q020")
	msg := qe.Message
	if qe.Detail != "" {
		msg += ": " + qe.Detail
	}
	return ServerMessage{
		Type:  MsgError,
		Error: &ErrorPayload{Code: qe.Code, Message: msg},
	}
}
