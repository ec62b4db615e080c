package websocket

import (
	"fmt"
	"strings"
)

type ConnNotFoundError struct {
	EndpointPath EndpointPath
	ConnId       ConnId
}

type EndpointNotFoundError struct {
	EndpointPath EndpointPath
}

type EndpointMessageError struct {
	EndpointPath EndpointPath
	Errors       []error
}

func (c *ConnNotFoundError) Error() string {
	return fmt.Sprintf("connection not found: endpointPath=%s connId=%s", c.EndpointPath, c.ConnId)
}

func (enf *EndpointNotFoundError) Error() string {
	return fmt.Sprintf("endpoint not found: %s", enf.EndpointPath)
}

func (e *EndpointMessageError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "endpoint message send error: endpointPath=%s", e.EndpointPath)
	for _, err := range e.Errors {
		b.WriteString("\n - ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e *EndpointMessageError) Unwrap() []error {
	return e.Errors
}
