package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/tessro/cadence/internal/catalog"
	"github.com/tessro/cadence/internal/controller"
	"github.com/tessro/cadence/internal/core"
	"github.com/tessro/cadence/internal/local"
	"github.com/tessro/cadence/internal/logger"
	"github.com/tessro/cadence/internal/remote"
	"github.com/tessro/cadence/internal/session"
	"github.com/tessro/cadence/internal/settings"
	"github.com/tessro/cadence/internal/store"
	"github.com/tessro/cadence/internal/transport"
)

// deviceName is how the registered device session shows up on the
// provider's device list.
const deviceName = "Cadence"

// app is the wired playback stack handed to command handlers.
type app struct {
	log      *slog.Logger
	store    *store.Store
	session  *session.Client
	catalog  *catalog.Client
	settings *settings.Store
	selector *transport.Selector
	ctrl     *controller.Controller
}

// newApp builds the playback stack from the loaded configuration.
func newApp() (*app, error) {
	logLevel := cfg.Log.Level
	if verbose {
		logLevel = "debug"
	}
	log := logger.New(logLevel, cfg.Log.Format)

	st := store.New()
	st.SetVolume(cfg.Defaults.Volume)
	if cfg.Defaults.Shuffle {
		st.ToggleShuffle()
	}
	st.SetRepeatMode(core.ParseRepeatMode(cfg.Defaults.Repeat))

	sess := session.New(cfg.Session.BaseURL, log)
	cat := catalog.New(cfg.Catalog.BaseURL, catalog.Options{
		RequestsPerSec: cfg.Catalog.RequestsPerSec,
		Burst:          cfg.Catalog.Burst,
	}, log)

	settingsStore, err := settings.Open()
	if err != nil {
		log.Warn("settings store unavailable, volume will not persist", "error", err)
		settingsStore = nil
	}

	pollInterval := time.Duration(cfg.Device.PollIntervalMS) * time.Millisecond
	policy := remote.Policy{
		MaxAttempts:      cfg.Device.MaxAttempts,
		TransferSettle:   time.Duration(cfg.Device.TransferSettleMS) * time.Millisecond,
		DedupeWindow:     time.Duration(cfg.Device.DedupeWindowMS) * time.Millisecond,
		TransientBackoff: 250 * time.Millisecond,
	}

	deviceClient := remote.NewClient(cfg.Device.BaseURL, log)
	sdk := remote.NewHTTPSDK(deviceClient, sess, deviceName, log)
	remoteTransport := remote.NewAdapter(deviceClient, sess, st, sdk, policy, pollInterval, log)
	fallback := local.New(st, pollInterval, log)

	selector := transport.NewSelector(sess, st, remoteTransport, fallback, log)
	ctrl := controller.New(selector, st, settingsStore, log)

	return &app{
		log:      log,
		store:    st,
		session:  sess,
		catalog:  cat,
		settings: settingsStore,
		selector: selector,
		ctrl:     ctrl,
	}, nil
}

// Close tears the stack down in reverse order.
func (a *app) Close() {
	if err := a.ctrl.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	if err := a.selector.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	if a.settings != nil {
		_ = a.settings.Close()
	}
}
