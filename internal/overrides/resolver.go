package overrides

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Setting names within the app_circuit_<key>_ namespace.
const (
	settingForceOpen              = "force_open"
	settingErrorThreshold         = "error_percentage_threshold"
	settingRequestVolumeThreshold = "request_volume_threshold"
	settingSleepWindow            = "sleep_window_milliseconds"
	settingTimeout                = "timeout"
)

// Resolver exposes per-key circuit setting overrides. Absence of an
// override (ok == false) means the caller-supplied default applies.
type Resolver interface {
	ForceOpen(key string) bool
	ErrorThresholdPercentage(key string) (int, bool)
	RequestVolumeThreshold(key string) (int, bool)
	SleepWindow(key string) (time.Duration, bool)
	Timeout(key string) (time.Duration, bool)
}

// ViperResolver reads overrides from a viper instance, so they can come
// from the config file or from environment variables interchangeably.
type ViperResolver struct {
	v *viper.Viper
}

func NewViperResolver(v *viper.Viper) *ViperResolver {
	return &ViperResolver{v: v}
}

func (r *ViperResolver) ForceOpen(key string) bool {
	prop := propertyName(key, settingForceOpen)
	if !r.v.IsSet(prop) {
		return false
	}

	return parseBool(r.v.GetString(prop))
}

func (r *ViperResolver) ErrorThresholdPercentage(key string) (int, bool) {
	return r.intSetting(key, settingErrorThreshold)
}

func (r *ViperResolver) RequestVolumeThreshold(key string) (int, bool) {
	return r.intSetting(key, settingRequestVolumeThreshold)
}

func (r *ViperResolver) SleepWindow(key string) (time.Duration, bool) {
	millis, ok := r.intSetting(key, settingSleepWindow)
	if !ok {
		return 0, false
	}

	return time.Duration(millis) * time.Millisecond, true
}

func (r *ViperResolver) Timeout(key string) (time.Duration, bool) {
	prop := propertyName(key, settingTimeout)
	if !r.v.IsSet(prop) {
		return 0, false
	}

	return parseDurationOrMillis(r.v.GetString(prop))
}

func (r *ViperResolver) intSetting(key, setting string) (int, bool) {
	prop := propertyName(key, setting)
	if !r.v.IsSet(prop) {
		return 0, false
	}

	return r.v.GetInt(prop), true
}

// Static is a map-backed Resolver for tests and programmatic wiring.
// Nil maps behave as "no overrides".
type Static struct {
	ForceOpenKeys           map[string]bool
	ErrorThresholds         map[string]int
	RequestVolumeThresholds map[string]int
	SleepWindows            map[string]time.Duration
	Timeouts                map[string]time.Duration
}

func (s *Static) ForceOpen(key string) bool {
	return s.ForceOpenKeys[key]
}

func (s *Static) ErrorThresholdPercentage(key string) (int, bool) {
	v, ok := s.ErrorThresholds[key]
	return v, ok
}

func (s *Static) RequestVolumeThreshold(key string) (int, bool) {
	v, ok := s.RequestVolumeThresholds[key]
	return v, ok
}

func (s *Static) SleepWindow(key string) (time.Duration, bool) {
	v, ok := s.SleepWindows[key]
	return v, ok
}

func (s *Static) Timeout(key string) (time.Duration, bool) {
	v, ok := s.Timeouts[key]
	return v, ok
}

// None is a Resolver with no overrides at all.
type None struct{}

func (None) ForceOpen(string) bool                       { return false }
func (None) ErrorThresholdPercentage(string) (int, bool) { return 0, false }
func (None) RequestVolumeThreshold(string) (int, bool)   { return 0, false }
func (None) SleepWindow(string) (time.Duration, bool)    { return 0, false }
func (None) Timeout(string) (time.Duration, bool)        { return 0, false }

func propertyName(key, setting string) string {
	return fmt.Sprintf("app_circuit_%s_%s", key, setting)
}

// parseBool accepts case-insensitive true/false and 1/0 forms.
// Anything unparsable is treated as false.
func parseBool(raw string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(strings.ToLower(raw)))
	if err != nil {
		return false
	}

	return b
}

// parseDurationOrMillis accepts either a duration string ("2s", "500ms")
// or a bare integer interpreted as milliseconds.
func parseDurationOrMillis(raw string) (time.Duration, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}

	if d, err := time.ParseDuration(raw); err == nil {
		return d, true
	}

	if millis, err := strconv.Atoi(raw); err == nil {
		return time.Duration(millis) * time.Millisecond, true
	}

	return 0, false
}
