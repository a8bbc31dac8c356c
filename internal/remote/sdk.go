package remote

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tessro/cadence/internal/logger"
	"github.com/tessro/cadence/internal/session"
)

// httpSDK registers a device session over the device API itself. It is
// the production SDK implementation; tests inject their own.
type httpSDK struct {
	client  *Client
	session *session.Client
	name    string
	log     *slog.Logger

	deviceID string
}

// NewHTTPSDK creates an SDK that registers a device session named name
// with the provider on Connect.
func NewHTTPSDK(client *Client, sess *session.Client, name string, log *slog.Logger) SDK {
	if log == nil {
		log = logger.Discard()
	}
	return &httpSDK{
		client:  client,
		session: sess,
		name:    name,
		log:     log,
	}
}

// Connect registers the device session and reports it ready.
func (s *httpSDK) Connect(ctx context.Context, sink EventSink) error {
	token, err := s.session.AccessToken(ctx)
	if err != nil {
		sink.OnError(err)
		return err
	}

	deviceID, err := s.client.RegisterDevice(ctx, token, s.name)
	if err != nil {
		sink.OnError(err)
		return fmt.Errorf("register device: %w", err)
	}

	s.deviceID = deviceID
	s.log.Debug("device session registered", "device_id", deviceID)
	sink.OnReady(deviceID)
	return nil
}

// Close tears down the device session. The provider expires inactive
// device sessions on its own, so there is nothing to undo remotely.
func (s *httpSDK) Close() error {
	return nil
}
