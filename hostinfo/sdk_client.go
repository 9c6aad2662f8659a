package hostinfo

import (
	"context"

	"github.com/cockroachdb/errors"
)

// Invoker calls a method on a channel and decodes the value into reply.
// *client.Client satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, channel, method string, args any, reply any) error
}

// SDK is the caller side of the endpoint.
type SDK struct {
	invoker Invoker
	channel string
}

func NewSDK(invoker Invoker, namespace string) *SDK {
	return &SDK{invoker: invoker, channel: ChannelName(namespace)}
}

// SdkInt calls getSdkInt.
func (s *SDK) SdkInt(ctx context.Context) (int, error) {
	var sdk int
	if err := s.invoker.Invoke(ctx, s.channel, GetSdkInt, nil, &sdk); err != nil {
		return 0, errors.Wrap(err, GetSdkInt)
	}
	return sdk, nil
}

// TimeZoneName calls getTimeZoneName.
func (s *SDK) TimeZoneName(ctx context.Context) (string, error) {
	var zone string
	if err := s.invoker.Invoke(ctx, s.channel, GetTimeZoneName, nil, &zone); err != nil {
		return "", errors.Wrap(err, GetTimeZoneName)
	}
	return zone, nil
}
