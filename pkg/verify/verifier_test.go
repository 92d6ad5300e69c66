package verify

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/hashicorp/go-hclog"
	"github.com/provide-io/launchguard/internal/authoritytest"
	"github.com/provide-io/launchguard/pkg/bus"
	"github.com/provide-io/launchguard/pkg/launcherrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const appID = "app.desktop"

func bufferLogger() (hclog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return hclog.New(&hclog.LoggerOptions{
		Name:   "verify_test",
		Level:  hclog.Trace,
		Output: &buf,
	}), &buf
}

func newFake(exec string, required, granted []string, mode string) *authoritytest.Fake {
	return &authoritytest.Fake{
		Apps:    map[string]map[string]dbus.Variant{appID: authoritytest.App(exec, required, mode)},
		Granted: map[string][]string{appID: granted},
	}
}

func TestVerifyLaunch_Allowed(t *testing.T) {
	fake := newFake("/usr/bin/sailjail -p app.desktop /usr/bin/app %U",
		[]string{"Internet", "Camera"}, []string{"Camera", "Internet", "Audio"}, "Normal")
	logger, buf := bufferLogger()

	ok := New(fake.Dialer(), logger, Options{}).VerifyLaunch(appID, []string{"/usr/bin/app", "a.jpg", "b.jpg"})
	assert.True(t, ok)
	assert.Equal(t, []string{"GetAppInfo", "PromptLaunchPermissions"}, fake.Calls)
	assert.Equal(t, 1, fake.Closes)
	assert.NotContains(t, buf.String(), "[ERROR]")
	assert.Contains(t, buf.String(), "state=decided")
}

func TestVerifyLaunch_NoPromptUsesQuery(t *testing.T) {
	fake := newFake("app", []string{"Internet"}, []string{"Internet"}, "Normal")
	logger, _ := bufferLogger()

	ok := New(fake.Dialer(), logger, Options{NoPrompt: true}).VerifyLaunch(appID, []string{"app"})
	assert.True(t, ok)
	assert.Equal(t, []string{"GetAppInfo", "QueryLaunchPermissions"}, fake.Calls)
}

func TestCheck_Failures(t *testing.T) {
	tests := []struct {
		name      string
		fake      *authoritytest.Fake
		argv      []string
		wantErr   error
		wantCalls []string
	}{
		{
			name:      "unknown application",
			fake:      &authoritytest.Fake{},
			argv:      []string{"app"},
			wantErr:   launcherrors.ErrNotFound,
			wantCalls: []string{"GetAppInfo"},
		},
		{
			name: "no exec line",
			fake: &authoritytest.Fake{Apps: map[string]map[string]dbus.Variant{
				appID: {"Name": dbus.MakeVariant("App")},
			}},
			argv:      []string{"app"},
			wantErr:   launcherrors.ErrNoExec,
			wantCalls: []string{"GetAppInfo"},
		},
		{
			name:      "argv mismatch",
			fake:      newFake("app %f", []string{"Internet"}, []string{"Internet"}, "Normal"),
			argv:      []string{"app", "--evil"},
			wantErr:   launcherrors.ErrTemplateMismatch,
			wantCalls: []string{"GetAppInfo"},
		},
		{
			name:      "empty argv",
			fake:      newFake("app", []string{"Internet"}, []string{"Internet"}, "Normal"),
			argv:      nil,
			wantErr:   launcherrors.ErrTemplateMismatch,
			wantCalls: []string{"GetAppInfo"},
		},
		{
			name:      "no permissions declared",
			fake:      newFake("app", nil, []string{"Internet"}, "Normal"),
			argv:      []string{"app"},
			wantErr:   launcherrors.ErrNoPermissions,
			wantCalls: []string{"GetAppInfo"},
		},
		{
			name: "prompt fails",
			fake: func() *authoritytest.Fake {
				f := newFake("app", []string{"Internet"}, nil, "Normal")
				f.Errors = map[string]error{"PromptLaunchPermissions": dbus.Error{
					Name: "org.freedesktop.DBus.Error.AuthFailed", Body: []interface{}{"denied"},
				}}
				return f
			}(),
			argv:      []string{"app"},
			wantErr:   launcherrors.ErrProtocol,
			wantCalls: []string{"GetAppInfo", "PromptLaunchPermissions"},
		},
		{
			name:      "permission missing",
			fake:      newFake("app", []string{"Internet", "Camera"}, []string{"Internet"}, "Normal"),
			argv:      []string{"app"},
			wantErr:   launcherrors.ErrPermissionDenied,
			wantCalls: []string{"GetAppInfo", "PromptLaunchPermissions"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := bufferLogger()
			err := New(tt.fake.Dialer(), logger, Options{}).Check(appID, tt.argv)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantCalls, tt.fake.Calls)
			assert.Equal(t, 1, tt.fake.Closes, "session must be closed")
			assert.Contains(t, buf.String(), "state=failed")
		})
	}
}

func TestCheck_UnknownAppLogsNoError(t *testing.T) {
	logger, buf := bufferLogger()
	ok := New((&authoritytest.Fake{}).Dialer(), logger, Options{}).VerifyLaunch(appID, []string{"app"})
	assert.False(t, ok)
	assert.NotContains(t, buf.String(), "[ERROR]")
}

func TestCheck_EmptyAppInfoIsNotFound(t *testing.T) {
	fake := &authoritytest.Fake{Bodies: map[string][]interface{}{
		"GetAppInfo": {map[string]dbus.Variant{}},
	}}
	logger, _ := bufferLogger()

	err := New(fake.Dialer(), logger, Options{}).Check(appID, []string{"app"})
	require.ErrorIs(t, err, launcherrors.ErrNotFound)
	assert.False(t, errors.Is(err, launcherrors.ErrProtocol))
}

func TestCheck_MissingPermissionLoggedByName(t *testing.T) {
	fake := newFake("app", []string{"Internet", "Location"}, []string{"Internet"}, "Normal")
	logger, buf := bufferLogger()

	assert.False(t, New(fake.Dialer(), logger, Options{}).VerifyLaunch(appID, []string{"app"}))
	assert.Contains(t, buf.String(), "permission=Location")
}

func TestCheck_BusUnavailable(t *testing.T) {
	dial := func() (bus.Conn, error) { return nil, errors.New("no system bus") }
	logger, _ := bufferLogger()

	err := New(dial, logger, Options{}).Check(appID, []string{"app"})
	assert.ErrorIs(t, err, launcherrors.ErrBusConnect)
}

// Every combination of declared and granted permissions: the launch is
// allowed exactly when the declared set is contained in the granted one.
func TestCheck_EmptyPermissionIdentifier(t *testing.T) {
	fake := newFake("app", []string{""}, []string{""}, "Normal")
	logger, _ := bufferLogger()
	assert.NoError(t, New(fake.Dialer(), logger, Options{}).Check(appID, []string{"app"}))

	fake = newFake("app", []string{"Internet", ""}, []string{"Internet"}, "Normal")
	err := New(fake.Dialer(), logger, Options{}).Check(appID, []string{"app"})
	assert.ErrorIs(t, err, launcherrors.ErrPermissionDenied)
}

func TestCheck_LogsApplicationOncePerLine(t *testing.T) {
	fake := newFake("app", []string{"Internet"}, []string{"Internet"}, "Normal")
	logger, buf := bufferLogger()

	require.NoError(t, New(fake.Dialer(), logger, Options{}).Check(appID, []string{"app"}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	for _, line := range lines {
		assert.LessOrEqual(t, strings.Count(line, "app="+appID), 1, line)
	}
	assert.Contains(t, buf.String(), "launch permitted: app="+appID)
}

func TestVerifyLaunch_PermissionPermutations(t *testing.T) {
	universe := []string{"Internet", "Camera", "Audio", ""}
	subset := func(mask int) []string {
		ids := []string{}
		for i, id := range universe {
			if mask&(1<<i) != 0 {
				ids = append(ids, id)
			}
		}
		return ids
	}

	for req := 0; req < 1<<len(universe); req++ {
		for grant := 0; grant < 1<<len(universe); grant++ {
			fake := newFake("app", subset(req), subset(grant), "Normal")
			got := New(fake.Dialer(), hclog.NewNullLogger(), Options{}).VerifyLaunch(appID, []string{"app"})
			assert.Equal(t, req&^grant == 0, got, "required=%v granted=%v", subset(req), subset(grant))
			assert.Equal(t, 1, fake.Closes)
		}
	}
}

func TestIsSandboxed(t *testing.T) {
	tests := []struct {
		name string
		fake *authoritytest.Fake
		want bool
	}{
		{name: "normal", fake: newFake("app", nil, nil, "Normal"), want: true},
		{name: "compatibility", fake: newFake("app", nil, nil, "Compatibility"), want: true},
		{name: "none", fake: newFake("app", nil, nil, "None"), want: false},
		{
			name: "mode missing",
			fake: &authoritytest.Fake{Apps: map[string]map[string]dbus.Variant{
				appID: {"Exec": dbus.MakeVariant("app")},
			}},
			want: false,
		},
		{name: "unknown application", fake: &authoritytest.Fake{}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.fake.Dialer(), hclog.NewNullLogger(), Options{}).IsSandboxed(appID)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, []string{"GetAppInfo"}, tt.fake.Calls)
			assert.Equal(t, 1, tt.fake.Closes)
		})
	}
}

func TestApplications(t *testing.T) {
	fake := newFake("app", nil, nil, "None")
	apps, err := New(fake.Dialer(), nil, Options{}).Applications()
	require.NoError(t, err)
	assert.Equal(t, []string{appID}, apps)
	assert.Equal(t, 1, fake.Closes)
}

func TestState(t *testing.T) {
	assert.Equal(t, "permissions-resolved", StatePermissionsResolved.String())
	assert.Equal(t, "unknown", State(42).String())
}
