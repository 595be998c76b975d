package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/labkm/labauth/internal"
	"github.com/labkm/labauth/internal/flows"
	"github.com/labkm/labauth/jwt"
	"github.com/labkm/labauth/metrics"
	"github.com/labkm/labauth/store"
	"github.com/labkm/labauth/transport"
)

// API endpoints and the login route.
const (
	DefaultLoginPath    = "/api/v1/auth/login"
	DefaultRegisterPath = "/api/v1/auth/register"
	DefaultLogoutPath   = "/api/v1/auth/logout"
	DefaultUserPath     = "/api/v1/auth/user"
	DefaultLoginRoute   = "/auth/login"
)

// Config names the auth endpoints.
type Config struct {
	LoginPath    string `yaml:"login_path"`
	RegisterPath string `yaml:"register_path"`
	LogoutPath   string `yaml:"logout_path"`
	UserPath     string `yaml:"user_path"`
	// LoginRoute is where Logout navigates.
	LoginRoute string `yaml:"login_route"`
}

// DefaultConfig returns the backend's endpoint layout.
func DefaultConfig() Config {
	return Config{
		LoginPath:    DefaultLoginPath,
		RegisterPath: DefaultRegisterPath,
		LogoutPath:   DefaultLogoutPath,
		UserPath:     DefaultUserPath,
		LoginRoute:   DefaultLoginRoute,
	}
}

// Deps are the collaborators of a [State]. Transport and Refresher are
// required.
type Deps struct {
	Transport *transport.Client
	Refresher transport.Refresher
	Navigator transport.Navigator
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// State is the authenticated session. It is safe for concurrent use.
type State struct {
	cfg       Config
	client    *transport.Client
	store     store.Store
	refresher transport.Refresher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	flows     flows.Deps

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	user         *UserProfile
	navigator    transport.Navigator
}

// New hydrates a State from the transport's credential store and installs
// the transport hooks that keep it consistent.
func New(ctx context.Context, cfg Config, deps Deps) (*State, error) {
	if deps.Transport == nil {
		return nil, errors.New("session: transport is required")
	}
	if deps.Refresher == nil {
		return nil, errors.New("session: refresher is required")
	}
	cfg = withDefaults(cfg)

	s := &State{
		cfg:       cfg,
		client:    deps.Transport,
		store:     deps.Transport.Store(),
		refresher: deps.Refresher,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		navigator: deps.Navigator,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.flows = s.buildFlowDeps()

	s.Reload(ctx)
	s.client.SetHooks(transport.Hooks{
		OnTokenRefreshed:     s.onTokenRefreshed,
		OnCredentialsCleared: s.onCredentialsCleared,
	})
	return s, nil
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.LoginPath == "" {
		cfg.LoginPath = def.LoginPath
	}
	if cfg.RegisterPath == "" {
		cfg.RegisterPath = def.RegisterPath
	}
	if cfg.LogoutPath == "" {
		cfg.LogoutPath = def.LogoutPath
	}
	if cfg.UserPath == "" {
		cfg.UserPath = def.UserPath
	}
	if cfg.LoginRoute == "" {
		cfg.LoginRoute = def.LoginRoute
	}
	return cfg
}

func (s *State) buildFlowDeps() flows.Deps {
	return flows.Deps{
		Login: flows.LoginDeps{
			Path:       s.cfg.LoginPath,
			Post:       s.client.Post,
			Persist:    s.store.SetMany,
			DecodeUser: decodeLoginUser,
			MetricInc:  s.metrics.Inc,
			Errors:     flows.LoginErrors{MalformedResponse: transport.ErrMalformedResponse},
		},
		Logout: flows.LogoutDeps{
			Path:      s.cfg.LogoutPath,
			Post:      s.client.Post,
			Clear:     s.ClearAuthData,
			Redirect:  s.redirectToLogin,
			Warn:      s.logger.Warn,
			MetricInc: s.metrics.Inc,
		},
		Refresh: flows.RefreshDeps{
			RefreshToken: s.currentRefreshToken,
			Exchange:     s.refresher.Refresh,
			Clear:        s.ClearAuthData,
			Errors: flows.RefreshErrors{
				RefreshFailed:  transport.ErrRefreshFailed,
				NoRefreshToken: transport.ErrNoRefreshToken,
			},
		},
		Profile: flows.ProfileDeps{
			Path: s.cfg.UserPath,
			Get: func(ctx context.Context, path string) (*transport.Response, error) {
				return s.client.Get(ctx, path, nil)
			},
			Persist: s.store.Set,
			Errors:  flows.ProfileErrors{MalformedResponse: transport.ErrMalformedResponse},
		},
	}
}

func decodeLoginUser(raw json.RawMessage) (any, error) {
	return DecodeUser(string(raw))
}

// Reload replaces the in-memory session with the store contents. A stored
// user that does not parse is logged and treated as absent.
func (s *State) Reload(ctx context.Context) {
	tokens := store.Tokens{Store: s.store}
	access := tokens.AccessToken(ctx)
	refresh := tokens.RefreshToken(ctx)

	var user *UserProfile
	if raw, ok := s.store.Get(ctx, store.KeyUser); ok && raw != "" {
		u, err := DecodeUser(raw)
		if err != nil {
			s.logger.WarnContext(ctx, "stored user is malformed, ignoring", slog.Any("error", err))
		} else {
			user = u
		}
	}

	s.mu.Lock()
	s.accessToken, s.refreshToken, s.user = access, refresh, user
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "session hydrated",
		slog.Bool("token", access != ""),
		slog.Bool("refresh_token", refresh != ""),
		slog.Bool("user", user != nil),
	)
}

// SetNavigator installs the navigator used by Logout.
func (s *State) SetNavigator(n transport.Navigator) {
	s.mu.Lock()
	s.navigator = n
	s.mu.Unlock()
}

// Login authenticates with credentials. A response without access_token or
// user fails with transport.ErrMalformedResponse and leaves the store as it
// was.
func (s *State) Login(ctx context.Context, credentials any) (*AuthData, error) {
	res := flows.RunLogin(ctx, credentials, s.flows.Login)
	if res.Err != nil {
		s.logger.InfoContext(ctx, "login failed", slog.Any("error", res.Err))
		return nil, res.Err
	}

	user, _ := res.User.(*UserProfile)

	s.mu.Lock()
	s.accessToken = res.Payload.AccessToken
	if res.Payload.RefreshToken != "" {
		s.refreshToken = res.Payload.RefreshToken
	}
	s.user = user
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "logged in",
		internal.TokenAttr("token", res.Payload.AccessToken),
		internal.TokenAttr("refresh_token", res.Payload.RefreshToken),
	)
	return &AuthData{
		AccessToken:  res.Payload.AccessToken,
		RefreshToken: res.Payload.RefreshToken,
		User:         user.Clone(),
	}, nil
}

// Register posts userData unchanged and returns the raw response.
func (s *State) Register(ctx context.Context, userData any) (*transport.Response, error) {
	return s.client.Post(ctx, s.cfg.RegisterPath, userData)
}

// Logout invalidates the server session best effort. Local credentials are
// always cleared and the navigator is sent to the login route; only a
// navigation failure is returned.
func (s *State) Logout(ctx context.Context) error {
	res := flows.RunLogout(ctx, s.flows.Logout)
	return res.RedirectErr
}

func (s *State) redirectToLogin(ctx context.Context) error {
	s.mu.RLock()
	nav := s.navigator
	s.mu.RUnlock()
	if nav == nil {
		return nil
	}
	return nav.Navigate(ctx, s.cfg.LoginRoute)
}

// RefreshAccessToken exchanges the refresh token for a new access token. On
// failure the whole session is cleared and the error wraps
// transport.ErrRefreshFailed.
func (s *State) RefreshAccessToken(ctx context.Context) (string, error) {
	res := flows.RunRefresh(ctx, s.flows.Refresh)
	if res.Err != nil {
		s.logger.WarnContext(ctx, "refresh failed, session cleared", slog.Any("error", res.Err))
		return "", res.Err
	}
	s.onTokenRefreshed(ctx, res.AccessToken)
	return res.AccessToken, nil
}

func (s *State) currentRefreshToken(ctx context.Context) string {
	s.mu.RLock()
	rt := s.refreshToken
	s.mu.RUnlock()
	if rt != "" {
		return rt
	}
	return store.Tokens{Store: s.store}.RefreshToken(ctx)
}

// FetchUserProfile fetches the current user and replaces the cached profile.
func (s *State) FetchUserProfile(ctx context.Context) (*UserProfile, error) {
	raw, err := flows.RunFetchProfile(ctx, s.flows.Profile)
	if raw == nil {
		return nil, err
	}
	user, decodeErr := DecodeUser(string(raw))
	if decodeErr != nil {
		return nil, errors.Join(transport.ErrMalformedResponse, decodeErr)
	}
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	if err != nil {
		s.logger.ErrorContext(ctx, "persisting user profile failed", slog.Any("error", err))
		return user.Clone(), err
	}
	return user.Clone(), nil
}

// SetAuthData stores the non-empty parts of data and updates memory.
func (s *State) SetAuthData(ctx context.Context, data AuthData) error {
	values := make(map[string]string, 3)
	if data.AccessToken != "" {
		values[store.KeyToken] = data.AccessToken
	}
	if data.RefreshToken != "" {
		values[store.KeyRefreshToken] = data.RefreshToken
	}
	if data.User != nil {
		raw, err := EncodeUser(data.User)
		if err != nil {
			return err
		}
		values[store.KeyUser] = raw
	}
	if len(values) == 0 {
		return nil
	}
	if err := s.store.SetMany(ctx, values); err != nil {
		return err
	}

	s.mu.Lock()
	if data.AccessToken != "" {
		s.accessToken = data.AccessToken
	}
	if data.RefreshToken != "" {
		s.refreshToken = data.RefreshToken
	}
	if data.User != nil {
		s.user = data.User.Clone()
	}
	s.mu.Unlock()
	return nil
}

// ClearAuthData wipes the session from memory and the store. Safe to call
// on an empty session.
func (s *State) ClearAuthData(ctx context.Context) {
	s.onCredentialsCleared(ctx)
	s.client.ClearCredentials(ctx)
}

func (s *State) onTokenRefreshed(ctx context.Context, token string) {
	s.mu.Lock()
	s.accessToken = token
	s.mu.Unlock()
	s.logger.DebugContext(ctx, "access token updated", internal.TokenAttr("token", token))
}

func (s *State) onCredentialsCleared(context.Context) {
	s.mu.Lock()
	s.accessToken, s.refreshToken, s.user = "", "", nil
	s.mu.Unlock()
}

// IsLoggedIn reports whether an access token is held.
func (s *State) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken != ""
}

// IsAdmin reports whether the cached user is an administrator.
func (s *State) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.IsAdmin()
}

// AccessToken returns the held access token, or "".
func (s *State) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the held refresh token, or "".
func (s *State) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// User returns a copy of the cached profile, or nil.
func (s *State) User() *UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Clone()
}

// UserID returns the cached user's numeric id. The bool is false when no
// user is cached; an id the server sent as a non-integer reads as 0.
func (s *State) UserID() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return 0, false
	}
	return s.user.ID, true
}

// Username returns the cached user's username, or "".
func (s *State) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return ""
	}
	return s.user.Username
}

// AccessTokenExpiry returns the exp claim of the held access token. Tokens
// that are not JWTs report false.
func (s *State) AccessTokenExpiry() (time.Time, bool) {
	return jwt.ExpiresAt(s.AccessToken())
}
