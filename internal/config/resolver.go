package config

import (
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/eugenenazirov/rmq-console/internal/properties"
)

// SetResult reports whether a guarded setter stored its input.
type SetResult int

const (
	// Ignored means the input was blank and the previous value was kept.
	Ignored SetResult = iota
	// Accepted means the input replaced the stored value.
	Accepted
)

func (r SetResult) String() string {
	if r == Accepted {
		return "accepted"
	}
	return "ignored"
}

// Recorder observes resolver state changes.
type Recorder interface {
	RecordUpdate(field string, result SetResult)
	RecordLoginLatch()
}

type nopRecorder struct{}

func (nopRecorder) RecordUpdate(string, SetResult) {}

func (nopRecorder) RecordLoginLatch() {}

// ResolverOption configures the behaviour of NewResolver.
type ResolverOption func(*Resolver)

// WithProperties overrides the process-wide property store.
func WithProperties(store properties.Store) ResolverOption {
	return func(r *Resolver) {
		r.props = store
	}
}

// WithEnv overrides the environment source.
func WithEnv(env properties.Env) ResolverOption {
	return func(r *Resolver) {
		r.env = env
	}
}

// WithLogger sets the logger used to report propagated values.
func WithLogger(logger *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithRecorder registers a Recorder for setter outcomes and login latches.
func WithRecorder(rec Recorder) ResolverOption {
	return func(r *Resolver) {
		r.recorder = rec
	}
}

// Resolver holds the console tunables and resolves each one through its
// source-precedence chain. Every field is stored atomically, so concurrent
// readers observe either the previous or the new value in full.
//
// Blank means empty or whitespace-only. Guards that decide whether a value is
// usable (propagating setters, ACL, the login fallback) reject blank values.
// GetValueOrEnvValue alone tests for emptiness: an explicit whitespace value
// is still an explicit value.
type Resolver struct {
	props    properties.Store
	env      properties.Env
	logger   *zap.Logger
	recorder Recorder

	// propagateMu pairs each stored value with its property write.
	propagateMu sync.Mutex

	namesrvAddr   atomic.Pointer[string]
	isVIPChannel  atomic.Pointer[string]
	dataPath      atomic.Pointer[string]
	accessKey     atomic.Pointer[string]
	secretKey     atomic.Pointer[string]
	timeoutMillis atomic.Pointer[int64]

	enableDashBoardCollect atomic.Bool
	loginRequired          atomic.Bool
	loginForced            atomic.Bool
	useTLS                 atomic.Bool
}

// NewResolver creates a Resolver. The namesrv address and VIP channel flag are
// seeded from the property store, then the environment, then their defaults.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		props:    properties.Global(),
		env:      properties.OSEnv{},
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}

	storeString(&r.namesrvAddr, r.propertyOrEnv(NamesrvAddrProperty, NamesrvAddrEnv, ""))
	storeString(&r.isVIPChannel, r.propertyOrEnv(VIPChannelProperty, VIPChannelEnv, DefaultVIPChannel))
	storeString(&r.dataPath, DefaultDataPath)

	return r
}

// GetValueOrEnvValue returns value unless it is empty, in which case it
// returns the environment variable envKey ("" when unset).
func (r *Resolver) GetValueOrEnvValue(value, envKey string) string {
	if value != "" {
		return value
	}
	v, _ := r.env.Lookup(envKey)
	return v
}

// NamesrvAddr returns the registry address list.
func (r *Resolver) NamesrvAddr() string {
	return loadString(&r.namesrvAddr)
}

// SetNamesrvAddr stores a non-blank address list and publishes it under
// NamesrvAddrProperty. Blank input is ignored.
func (r *Resolver) SetNamesrvAddr(addr string) SetResult {
	return r.setPropagated("namesrvAddr", &r.namesrvAddr, NamesrvAddrProperty, addr)
}

// IsVIPChannel returns the VIP channel flag as a boolean string.
func (r *Resolver) IsVIPChannel() string {
	return loadString(&r.isVIPChannel)
}

// SetIsVIPChannel stores a non-blank flag and publishes it under
// VIPChannelProperty. Blank input is ignored.
func (r *Resolver) SetIsVIPChannel(flag string) SetResult {
	return r.setPropagated("isVIPChannel", &r.isVIPChannel, VIPChannelProperty, flag)
}

// AccessKey returns the configured access key, falling back to the
// environment on every call.
func (r *Resolver) AccessKey() string {
	return r.GetValueOrEnvValue(loadString(&r.accessKey), AccessKeyEnv)
}

func (r *Resolver) SetAccessKey(key string) {
	storeString(&r.accessKey, key)
}

// SecretKey returns the configured secret key, falling back to the
// environment on every call.
func (r *Resolver) SecretKey() string {
	return r.GetValueOrEnvValue(loadString(&r.secretKey), SecretKeyEnv)
}

func (r *Resolver) SetSecretKey(key string) {
	storeString(&r.secretKey, key)
}

// IsACLEnabled reports whether both resolved keys are non-blank.
func (r *Resolver) IsACLEnabled() bool {
	return !isBlank(r.AccessKey()) && !isBlank(r.SecretKey())
}

// RocketMqDashboardDataPath returns the console data directory.
func (r *Resolver) RocketMqDashboardDataPath() string {
	return loadString(&r.dataPath)
}

// DashboardCollectData returns the directory holding collected dashboard data.
func (r *Resolver) DashboardCollectData() string {
	return r.RocketMqDashboardDataPath() + string(os.PathSeparator) + dashboardDir
}

func (r *Resolver) SetDataPath(path string) {
	storeString(&r.dataPath, path)
}

func (r *Resolver) EnableDashBoardCollect() bool {
	return r.enableDashBoardCollect.Load()
}

// SetEnableDashBoardCollect parses raw as a boolean; anything other than
// "true" (case-insensitive) disables collection.
func (r *Resolver) SetEnableDashBoardCollect(raw string) {
	r.enableDashBoardCollect.Store(parseBool(raw))
}

// ResolveLoginRequired computes the effective login flag without mutating
// state: true when the stored flag is set, when the environment latched it
// earlier, or when login.required currently parses to true.
func (r *Resolver) ResolveLoginRequired() bool {
	return r.loginRequired.Load() || r.loginForced.Load() || r.envForcesLogin()
}

// LatchIfForced records that the environment forces login while the stored
// flag is false. It reports whether the flag was latched by this call. A latch
// holds for the lifetime of the Resolver: neither the environment nor
// SetLoginRequired(false) can clear it.
func (r *Resolver) LatchIfForced() bool {
	if r.loginForced.Load() || r.loginRequired.Load() || !r.envForcesLogin() {
		return false
	}
	if !r.loginForced.CompareAndSwap(false, true) {
		return false
	}
	r.loginRequired.Store(true)
	r.logger.Info("login requirement forced by environment", zap.String("env", LoginRequiredEnv))
	r.recorder.RecordLoginLatch()
	return true
}

// IsLoginRequired latches the environment override, if any, and returns the
// effective flag. Reads are therefore not pure; use ResolveLoginRequired for a
// side-effect free query.
func (r *Resolver) IsLoginRequired() bool {
	r.LatchIfForced()
	return r.loginRequired.Load() || r.loginForced.Load()
}

// SetLoginRequired stores the configured flag. Storing false does not undo an
// environment latch.
func (r *Resolver) SetLoginRequired(required bool) {
	r.loginRequired.Store(required)
}

func (r *Resolver) envForcesLogin() bool {
	v := r.GetValueOrEnvValue("", LoginRequiredEnv)
	return !isBlank(v) && parseBool(v)
}

func (r *Resolver) UseTLS() bool {
	return r.useTLS.Load()
}

func (r *Resolver) SetUseTLS(useTLS bool) {
	r.useTLS.Store(useTLS)
}

// TimeoutMillis returns the configured timeout and whether one was set.
func (r *Resolver) TimeoutMillis() (int64, bool) {
	p := r.timeoutMillis.Load()
	if p == nil {
		return 0, false
	}
	return *p, true
}

func (r *Resolver) SetTimeoutMillis(ms int64) {
	r.timeoutMillis.Store(&ms)
}

func (r *Resolver) setPropagated(field string, dst *atomic.Pointer[string], key, value string) SetResult {
	if isBlank(value) {
		r.logger.Debug("ignoring blank configuration value", zap.String("field", field))
		r.recorder.RecordUpdate(field, Ignored)
		return Ignored
	}

	r.propagateMu.Lock()
	storeString(dst, value)
	r.props.Set(key, value)
	r.propagateMu.Unlock()

	r.logger.Info("configuration value propagated",
		zap.String("field", field),
		zap.String("property", key),
		zap.String("value", value),
	)
	r.recorder.RecordUpdate(field, Accepted)
	return Accepted
}

func (r *Resolver) propertyOrEnv(propKey, envKey, fallback string) string {
	if v, ok := r.props.Get(propKey); ok {
		return v
	}
	if v, ok := r.env.Lookup(envKey); ok {
		return v
	}
	return fallback
}

func storeString(dst *atomic.Pointer[string], value string) {
	dst.Store(&value)
}

func loadString(src *atomic.Pointer[string]) string {
	if p := src.Load(); p != nil {
		return *p
	}
	return ""
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func parseBool(s string) bool {
	return strings.EqualFold(s, "true")
}
