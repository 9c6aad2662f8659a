// Package hostinfo implements the host bridge endpoint: a method channel handler
// answering getSdkInt and getTimeZoneName from the host operating system.
package hostinfo

import (
	"context"

	zlog "github.com/rs/zerolog/log"

	"host-bridge/message"
	"host-bridge/middleware"
)

// DefaultNamespace is the application namespace the channel name is derived from.
const DefaultNamespace = "com.fgcompany.fgislamic_prayer"

// CodeHostError tags results for host accessors that failed.
const CodeHostError = "HOST_ERROR"

// Method names understood by the endpoint.
const (
	GetSdkInt       = "getSdkInt"
	GetTimeZoneName = "getTimeZoneName"
)

// ChannelName returns the channel the endpoint is attached to, "<namespace>/sdk".
func ChannelName(namespace string) string {
	return namespace + "/sdk"
}

// Method is the decoded form of a method name.
type Method int

const (
	MethodUnknown Method = iota
	MethodGetSdkInt
	MethodGetTimeZoneName
)

// ParseMethod matches name exactly and case-sensitively.
func ParseMethod(name string) Method {
	switch name {
	case GetSdkInt:
		return MethodGetSdkInt
	case GetTimeZoneName:
		return MethodGetTimeZoneName
	default:
		return MethodUnknown
	}
}

func (m Method) String() string {
	switch m {
	case MethodGetSdkInt:
		return GetSdkInt
	case MethodGetTimeZoneName:
		return GetTimeZoneName
	default:
		return "unknown"
	}
}

// Registrar is where channel handlers are attached, typically a *server.Server.
type Registrar interface {
	SetMethodCallHandler(channel string, h middleware.HandlerFunc)
}

// Endpoint answers calls on the "<namespace>/sdk" channel. It holds no mutable
// state, so calls may run concurrently and in any order.
type Endpoint struct {
	channel string
	host    Host
}

func NewEndpoint(namespace string, host Host) *Endpoint {
	return &Endpoint{channel: ChannelName(namespace), host: host}
}

// Channel returns the channel name the endpoint answers on.
func (e *Endpoint) Channel() string {
	return e.channel
}

// Attach registers the endpoint. It stays active until Detach.
func (e *Endpoint) Attach(r Registrar) {
	r.SetMethodCallHandler(e.channel, e.Handle)
}

// Detach unregisters the endpoint.
func (e *Endpoint) Detach(r Registrar) {
	r.SetMethodCallHandler(e.channel, nil)
}

// Handle answers one call. Arguments are ignored. Unknown methods answer
// NotImplemented, never an error.
func (e *Endpoint) Handle(ctx context.Context, call *message.MethodCall) *message.MethodResult {
	switch ParseMethod(call.Method) {
	case MethodGetSdkInt:
		sdk, err := e.host.SdkInt()
		if err != nil {
			zlog.Error().Err(err).Msg("read host sdk version")
			return message.Error(CodeHostError, err.Error(), nil)
		}
		return message.Success(sdk)
	case MethodGetTimeZoneName:
		zone, err := e.host.TimeZoneName()
		if err != nil {
			zlog.Error().Err(err).Msg("read host time zone")
			return message.Error(CodeHostError, err.Error(), nil)
		}
		return message.Success(zone)
	default:
		return message.NotImplemented()
	}
}
