package config

import (
	"os"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/rmq-console/internal/properties"
)

type countingRecorder struct {
	mu      sync.Mutex
	updates map[string]int
	latches int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{updates: make(map[string]int)}
}

func (c *countingRecorder) RecordUpdate(field string, result SetResult) {
	c.mu.Lock()
	c.updates[field+"/"+result.String()]++
	c.mu.Unlock()
}

func (c *countingRecorder) RecordLoginLatch() {
	c.mu.Lock()
	c.latches++
	c.mu.Unlock()
}

func newTestResolver(t *testing.T, props map[string]string, env map[string]string) (*Resolver, *properties.MemoryStore, *properties.MapEnv) {
	t.Helper()

	store := properties.NewMemoryStore(props)
	mapEnv := properties.NewMapEnv(env)
	r := NewResolver(
		WithProperties(store),
		WithEnv(mapEnv),
		WithLogger(zaptest.NewLogger(t)),
	)
	return r, store, mapEnv
}

func TestNewResolverDefaults(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestResolver(t, nil, nil)

	if got := r.NamesrvAddr(); got != "" {
		t.Fatalf("expected empty namesrv address, got %q", got)
	}
	if got := r.IsVIPChannel(); got != DefaultVIPChannel {
		t.Fatalf("expected VIP channel %q, got %q", DefaultVIPChannel, got)
	}
	if got := r.RocketMqDashboardDataPath(); got != DefaultDataPath {
		t.Fatalf("expected data path %q, got %q", DefaultDataPath, got)
	}
	if r.EnableDashBoardCollect() || r.IsLoginRequired() || r.UseTLS() || r.IsACLEnabled() {
		t.Fatalf("expected boolean flags to default to false")
	}
	if _, ok := r.TimeoutMillis(); ok {
		t.Fatalf("expected timeout to be unset")
	}
}

func TestNewResolverSeedsFromPropertiesThenEnv(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		props       map[string]string
		env         map[string]string
		wantAddr    string
		wantChannel string
	}{
		{
			name:        "PropertyWins",
			props:       map[string]string{NamesrvAddrProperty: "prop:9876", VIPChannelProperty: "false"},
			env:         map[string]string{NamesrvAddrEnv: "env:9876", VIPChannelEnv: "true"},
			wantAddr:    "prop:9876",
			wantChannel: "false",
		},
		{
			name:        "EnvFallback",
			env:         map[string]string{NamesrvAddrEnv: "env:9876", VIPChannelEnv: "false"},
			wantAddr:    "env:9876",
			wantChannel: "false",
		},
		{
			name:        "Defaults",
			wantAddr:    "",
			wantChannel: "true",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, _, _ := newTestResolver(t, tc.props, tc.env)
			if got := r.NamesrvAddr(); got != tc.wantAddr {
				t.Fatalf("expected namesrv address %q, got %q", tc.wantAddr, got)
			}
			if got := r.IsVIPChannel(); got != tc.wantChannel {
				t.Fatalf("expected VIP channel %q, got %q", tc.wantChannel, got)
			}
		})
	}
}

func TestGetValueOrEnvValue(t *testing.T) {
	t.Parallel()

	r, _, env := newTestResolver(t, nil, map[string]string{"some.key": "from-env"})

	for _, v := range []string{"explicit", " ", "\t"} {
		if got := r.GetValueOrEnvValue(v, "some.key"); got != v {
			t.Fatalf("expected non-empty value %q to win, got %q", v, got)
		}
	}

	if got := r.GetValueOrEnvValue("", "some.key"); got != "from-env" {
		t.Fatalf("expected environment value, got %q", got)
	}

	env.Unsetenv("some.key")
	if got := r.GetValueOrEnvValue("", "some.key"); got != "" {
		t.Fatalf("expected empty result for unset variable, got %q", got)
	}
}

func TestAccessAndSecretKeysAreNotCached(t *testing.T) {
	t.Parallel()

	r, _, env := newTestResolver(t, nil, nil)
	if r.AccessKey() != "" || r.SecretKey() != "" {
		t.Fatalf("expected empty keys without configuration")
	}

	env.Setenv(AccessKeyEnv, "ak-env")
	env.Setenv(SecretKeyEnv, "sk-env")
	if r.AccessKey() != "ak-env" || r.SecretKey() != "sk-env" {
		t.Fatalf("expected keys from environment, got %q/%q", r.AccessKey(), r.SecretKey())
	}

	env.Setenv(AccessKeyEnv, "ak-rotated")
	if got := r.AccessKey(); got != "ak-rotated" {
		t.Fatalf("expected environment change to be observed, got %q", got)
	}

	r.SetAccessKey("ak-explicit")
	r.SetSecretKey("sk-explicit")
	if r.AccessKey() != "ak-explicit" || r.SecretKey() != "sk-explicit" {
		t.Fatalf("expected explicit keys to win, got %q/%q", r.AccessKey(), r.SecretKey())
	}
}

func TestIsACLEnabled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		accessKey string
		secretKey string
		env       map[string]string
		want      bool
	}{
		{name: "BothSet", accessKey: "ak", secretKey: "sk", want: true},
		{name: "AccessMissing", secretKey: "sk", want: false},
		{name: "SecretMissing", accessKey: "ak", want: false},
		{name: "BothMissing", want: false},
		{name: "AccessBlank", accessKey: "   ", secretKey: "sk", want: false},
		{name: "SecretBlank", accessKey: "ak", secretKey: "\t", want: false},
		{
			name: "ResolvedFromEnv",
			env:  map[string]string{AccessKeyEnv: "ak", SecretKeyEnv: "sk"},
			want: true,
		},
		{
			name:      "MixedSources",
			accessKey: "ak",
			env:       map[string]string{SecretKeyEnv: "sk"},
			want:      true,
		},
		{
			name: "BlankEnv",
			env:  map[string]string{AccessKeyEnv: "ak", SecretKeyEnv: "  "},
			want: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, _, _ := newTestResolver(t, nil, tc.env)
			r.SetAccessKey(tc.accessKey)
			r.SetSecretKey(tc.secretKey)

			if got := r.IsACLEnabled(); got != tc.want {
				t.Fatalf("expected IsACLEnabled=%v, got %v", tc.want, got)
			}
		})
	}
}

func TestSetNamesrvAddr(t *testing.T) {
	t.Parallel()

	rec := newCountingRecorder()
	store := properties.NewMemoryStore(map[string]string{NamesrvAddrProperty: "seed:9876"})
	r := NewResolver(WithProperties(store), WithEnv(properties.NewMapEnv(nil)), WithRecorder(rec))

	for _, blank := range []string{"", "   ", "\n"} {
		if res := r.SetNamesrvAddr(blank); res != Ignored {
			t.Fatalf("expected blank input %q to be ignored, got %s", blank, res)
		}
		if got := r.NamesrvAddr(); got != "seed:9876" {
			t.Fatalf("expected prior value to be retained, got %q", got)
		}
	}

	if res := r.SetNamesrvAddr("10.0.0.1:9876"); res != Accepted {
		t.Fatalf("expected address to be accepted, got %s", res)
	}
	if got := r.NamesrvAddr(); got != "10.0.0.1:9876" {
		t.Fatalf("expected updated address, got %q", got)
	}
	if got, _ := store.Get(NamesrvAddrProperty); got != "10.0.0.1:9876" {
		t.Fatalf("expected property to be propagated, got %q", got)
	}

	if rec.updates["namesrvAddr/ignored"] != 3 || rec.updates["namesrvAddr/accepted"] != 1 {
		t.Fatalf("unexpected recorded updates: %v", rec.updates)
	}
}

func TestSetIsVIPChannel(t *testing.T) {
	t.Parallel()

	r, store, _ := newTestResolver(t, nil, nil)

	if res := r.SetIsVIPChannel(" "); res != Ignored {
		t.Fatalf("expected blank flag to be ignored, got %s", res)
	}
	if _, ok := store.Get(VIPChannelProperty); ok {
		t.Fatalf("expected ignored flag not to touch the property store")
	}
	if got := r.IsVIPChannel(); got != "true" {
		t.Fatalf("expected default flag to be retained, got %q", got)
	}

	if res := r.SetIsVIPChannel("false"); res != Accepted {
		t.Fatalf("expected flag to be accepted, got %s", res)
	}
	if got, _ := store.Get(VIPChannelProperty); got != "false" {
		t.Fatalf("expected VIP property to be propagated, got %q", got)
	}
	if _, ok := store.Get(NamesrvAddrProperty); ok {
		t.Fatalf("expected VIP setter not to touch the namesrv property")
	}
}

func TestResolversAreIsolated(t *testing.T) {
	t.Parallel()

	a, storeA, _ := newTestResolver(t, nil, nil)
	b, storeB, _ := newTestResolver(t, nil, nil)

	a.SetNamesrvAddr("a:9876")
	if b.NamesrvAddr() != "" {
		t.Fatalf("expected resolver b to be unaffected, got %q", b.NamesrvAddr())
	}
	if _, ok := storeB.Get(NamesrvAddrProperty); ok {
		t.Fatalf("expected store b to be unaffected")
	}
	if got, _ := storeA.Get(NamesrvAddrProperty); got != "a:9876" {
		t.Fatalf("expected store a to hold the address, got %q", got)
	}
}

func TestLoginRequiredLatch(t *testing.T) {
	t.Parallel()

	rec := newCountingRecorder()
	env := properties.NewMapEnv(nil)
	r := NewResolver(WithProperties(properties.NewMemoryStore(nil)), WithEnv(env), WithRecorder(rec))

	for i := 0; i < 3; i++ {
		if r.IsLoginRequired() {
			t.Fatalf("expected login not required without environment override")
		}
	}

	env.Setenv(LoginRequiredEnv, "true")
	if !r.IsLoginRequired() {
		t.Fatalf("expected environment to force login")
	}

	env.Unsetenv(LoginRequiredEnv)
	for i := 0; i < 3; i++ {
		if !r.IsLoginRequired() {
			t.Fatalf("expected latch to hold after environment was cleared")
		}
	}

	env.Setenv(LoginRequiredEnv, "false")
	if !r.IsLoginRequired() {
		t.Fatalf("expected environment to never reset the latch")
	}

	if rec.latches != 1 {
		t.Fatalf("expected exactly one latch, got %d", rec.latches)
	}
}

func TestLoginRequiredFalseEnvKeepsFlag(t *testing.T) {
	t.Parallel()

	r, _, env := newTestResolver(t, nil, map[string]string{LoginRequiredEnv: "yes"})
	if r.IsLoginRequired() {
		t.Fatalf("expected malformed boolean to parse to false")
	}

	env.Setenv(LoginRequiredEnv, "TRUE")
	if !r.IsLoginRequired() {
		t.Fatalf("expected case-insensitive true to force login")
	}
}

func TestResolveLoginRequiredIsPure(t *testing.T) {
	t.Parallel()

	r, _, env := newTestResolver(t, nil, map[string]string{LoginRequiredEnv: "true"})

	if !r.ResolveLoginRequired() {
		t.Fatalf("expected environment to resolve login as required")
	}

	env.Unsetenv(LoginRequiredEnv)
	if r.ResolveLoginRequired() {
		t.Fatalf("expected pure resolution not to have latched")
	}

	env.Setenv(LoginRequiredEnv, "true")
	if !r.LatchIfForced() {
		t.Fatalf("expected LatchIfForced to latch")
	}
	if r.LatchIfForced() {
		t.Fatalf("expected second LatchIfForced to be a no-op")
	}

	env.Unsetenv(LoginRequiredEnv)
	if !r.ResolveLoginRequired() {
		t.Fatalf("expected latched flag to be resolved")
	}
}

func TestLatchSurvivesExplicitFalse(t *testing.T) {
	t.Parallel()

	r, _, env := newTestResolver(t, nil, map[string]string{LoginRequiredEnv: "true"})
	if !r.LatchIfForced() {
		t.Fatalf("expected LatchIfForced to latch")
	}

	env.Unsetenv(LoginRequiredEnv)
	r.SetLoginRequired(false)

	if !r.ResolveLoginRequired() {
		t.Fatalf("expected latched login to survive SetLoginRequired(false)")
	}
	if !r.IsLoginRequired() {
		t.Fatalf("expected IsLoginRequired to report the latch")
	}
	if r.LatchIfForced() {
		t.Fatalf("expected no second latch")
	}
}

func TestExplicitLoginRequiredIgnoresEnv(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestResolver(t, nil, map[string]string{LoginRequiredEnv: "false"})
	r.SetLoginRequired(true)

	if !r.IsLoginRequired() {
		t.Fatalf("expected explicit true to win over environment false")
	}
}

func TestDashboardCollectData(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestResolver(t, nil, nil)
	sep := string(os.PathSeparator)

	for _, path := range []string{DefaultDataPath, "/var/lib/console", "relative/dir", "", "/trailing/"} {
		r.SetDataPath(path)
		if got := r.RocketMqDashboardDataPath(); got != path {
			t.Fatalf("expected data path %q, got %q", path, got)
		}
		if got, want := r.DashboardCollectData(), path+sep+"dashboard"; got != want {
			t.Fatalf("expected collect path %q, got %q", want, got)
		}
	}
}

func TestPlainSetters(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestResolver(t, nil, nil)

	tests := []struct {
		raw  string
		want bool
	}{
		{"true", true},
		{"True", true},
		{"false", false},
		{"1", false},
		{"", false},
		{"garbage", false},
	}
	for _, tc := range tests {
		r.SetEnableDashBoardCollect(tc.raw)
		if got := r.EnableDashBoardCollect(); got != tc.want {
			t.Fatalf("SetEnableDashBoardCollect(%q): expected %v, got %v", tc.raw, tc.want, got)
		}
	}

	r.SetUseTLS(true)
	if !r.UseTLS() || !r.UseTLS() {
		t.Fatalf("expected UseTLS to be stable at true")
	}

	r.SetTimeoutMillis(3000)
	got, ok := r.TimeoutMillis()
	if !ok || got != 3000 {
		t.Fatalf("expected timeout 3000, got %d (set=%v)", got, ok)
	}
}

func TestSetResultString(t *testing.T) {
	t.Parallel()

	if Accepted.String() != "accepted" || Ignored.String() != "ignored" {
		t.Fatalf("unexpected SetResult strings %q/%q", Accepted, Ignored)
	}
}

func TestResolverConcurrentReadsDuringUpdates(t *testing.T) {
	r, _, _ := newTestResolver(t, nil, nil)
	addrs := map[string]struct{}{"": {}}
	for _, a := range []string{"a:9876", "b:9876;c:9876"} {
		addrs[a] = struct{}{}
	}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(2)

		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				r.SetNamesrvAddr("a:9876")
			} else {
				r.SetNamesrvAddr("b:9876;c:9876")
			}
		}(i)

		go func() {
			defer wg.Done()
			if _, ok := addrs[r.NamesrvAddr()]; !ok {
				t.Errorf("observed torn namesrv address %q", r.NamesrvAddr())
			}
		}()
	}

	wg.Wait()
}

func TestConcurrentSettersKeepPropertyInSync(t *testing.T) {
	r, store, _ := newTestResolver(t, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.SetNamesrvAddr("api:9876")
		}()
		go func() {
			defer wg.Done()
			r.SetNamesrvAddr("reload:9876")
		}()
	}
	wg.Wait()

	got, _ := store.Get(NamesrvAddrProperty)
	if got != r.NamesrvAddr() {
		t.Fatalf("property %q diverged from resolver value %q", got, r.NamesrvAddr())
	}
}
