// Package configuration loads the application configuration from optional
// environment-style files and the process environment.
package configuration

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/desertwitch/gocopy/internal/progress"
	"github.com/desertwitch/gocopy/internal/worker"
)

// Keys of the configuration values.
const (
	KeyQueueCapacity  = "GOCOPY_QUEUE_CAPACITY"
	KeyRepaintMs      = "GOCOPY_REPAINT_MS"
	KeyStatusMs       = "GOCOPY_STATUS_MS"
	KeyBufferKB       = "GOCOPY_BUFFER_KB"
	KeyVerify         = "GOCOPY_VERIFY"
	KeyConfirmCancel  = "GOCOPY_CONFIRM_CANCEL"
	KeyConfirmHidden  = "GOCOPY_CONFIRM_HIDDEN"
	KeySpeedLimit     = "GOCOPY_SPEED_LIMIT"
	KeyDecisionPolicy = "GOCOPY_DECISION_POLICY"
)

// AppConfiguration is the principal structure holding the application
// configuration.
type AppConfiguration struct {
	// QueueCapacity is the amount of operations allowed to run at once.
	QueueCapacity int

	// RepaintPeriod is the period progress is flushed to the renderers.
	RepaintPeriod time.Duration

	// StatusPeriod is the period the status lines are refreshed.
	StatusPeriod time.Duration

	// BufferSize is the copy chunk size in bytes.
	BufferSize int

	// Verify describes if copied files are verified by their hashes.
	Verify bool

	// ConfirmCancel describes if user cancels need to be confirmed.
	ConfirmCancel bool

	// ConfirmHidden describes if hidden files need to be confirmed before
	// they are copied or moved.
	ConfirmHidden bool

	// SpeedLimit is the speed limit in bytes per second (zero is unlimited).
	SpeedLimit uint64

	// DecisionPolicy is how decisions are answered without a user interface.
	DecisionPolicy progress.DecisionPolicy
}

// NewAppConfiguration returns a pointer to a new [AppConfiguration] holding
// the default values.
func NewAppConfiguration() *AppConfiguration {
	return &AppConfiguration{
		QueueCapacity:  1,
		RepaintPeriod:  100 * time.Millisecond, //nolint:mnd
		StatusPeriod:   time.Second,
		BufferSize:     worker.DefaultBufferSize,
		Verify:         true,
		ConfirmCancel:  true,
		DecisionPolicy: progress.PolicySkip,
	}
}

// Load returns the [AppConfiguration] read from the given files on top of the
// defaults. Files that do not exist are ignored.
func Load(provider *ConfigProviderImpl, filenames ...string) (*AppConfiguration, error) {
	config := NewAppConfiguration()
	envMap := map[string]string{}

	existing := []string{}
	for _, filename := range filenames {
		if filename != "" {
			existing = append(existing, filename)
		}
	}

	if len(existing) > 0 {
		data, err := provider.ReadGeneric(existing...)
		if err != nil {
			return nil, fmt.Errorf("(config) failed to read: %w", err)
		}
		envMap = data
	}

	if err := config.apply(provider, envMap); err != nil {
		return nil, fmt.Errorf("(config) %w", err)
	}

	return config, nil
}

//nolint:cyclop
func (c *AppConfiguration) apply(provider *ConfigProviderImpl, envMap map[string]string) error {
	if v, ok, err := provider.MapKeyToInt(envMap, KeyQueueCapacity); err != nil {
		return err
	} else if ok {
		if v < 1 {
			slog.Warn("Queue capacity below one, using one",
				"value", v,
			)
			v = 1
		}
		c.QueueCapacity = v
	}

	if err := c.applyPeriod(provider, envMap, KeyRepaintMs, &c.RepaintPeriod); err != nil {
		return err
	}

	if err := c.applyPeriod(provider, envMap, KeyStatusMs, &c.StatusPeriod); err != nil {
		return err
	}

	if v, ok, err := provider.MapKeyToInt(envMap, KeyBufferKB); err != nil {
		return err
	} else if ok {
		if v < 1 {
			return &ValueError{Key: KeyBufferKB, Value: provider.MapKeyToString(envMap, KeyBufferKB), Err: ErrInvalidValue}
		}
		c.BufferSize = v * 1024 //nolint:mnd
	}

	if v, ok, err := provider.MapKeyToBool(envMap, KeyVerify); err != nil {
		return err
	} else if ok {
		c.Verify = v
	}

	if v, ok, err := provider.MapKeyToBool(envMap, KeyConfirmCancel); err != nil {
		return err
	} else if ok {
		c.ConfirmCancel = v
	}

	if v, ok, err := provider.MapKeyToBool(envMap, KeyConfirmHidden); err != nil {
		return err
	} else if ok {
		c.ConfirmHidden = v
	}

	if v, ok, err := provider.MapKeyToUint64(envMap, KeySpeedLimit); err != nil {
		return err
	} else if ok {
		c.SpeedLimit = v
	}

	if v := provider.MapKeyToString(envMap, KeyDecisionPolicy); v != "" {
		switch policy := progress.DecisionPolicy(v); policy {
		case progress.PolicySkip, progress.PolicyProceed, progress.PolicyCancel:
			c.DecisionPolicy = policy
		default:
			return &ValueError{Key: KeyDecisionPolicy, Value: v, Err: ErrInvalidValue}
		}
	}

	return nil
}

func (c *AppConfiguration) applyPeriod(provider *ConfigProviderImpl, envMap map[string]string, key string, target *time.Duration) error {
	v, ok, err := provider.MapKeyToInt(envMap, key)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	if v < 1 {
		return &ValueError{Key: key, Value: provider.MapKeyToString(envMap, key), Err: ErrInvalidValue}
	}

	*target = time.Duration(v) * time.Millisecond

	return nil
}

// ProgressOptions returns the options of the progress dialogs.
func (c *AppConfiguration) ProgressOptions() progress.Options {
	return progress.Options{
		RepaintPeriod: c.RepaintPeriod,
		StatusPeriod:  c.StatusPeriod,
		ConfirmCancel: c.ConfirmCancel,
		SpeedLimit:    c.SpeedLimit,
	}
}

// WorkerOptions returns the options of the worker.
func (c *AppConfiguration) WorkerOptions() worker.Options {
	return worker.Options{
		BufferSize:    c.BufferSize,
		Verify:        c.Verify,
		ConfirmHidden: c.ConfirmHidden,
	}
}
