// Command sessionctl keeps a portal session on this machine and sends
// authenticated requests to the backend with it.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jrsteele09/go-session-client/apiclient"
	"github.com/jrsteele09/go-session-client/credentials"
	"github.com/jrsteele09/go-session-client/credentials/filestore"
	"github.com/jrsteele09/go-session-client/credentials/redisstore"
	"github.com/jrsteele09/go-session-client/internal/config"
	"github.com/jrsteele09/go-session-client/internal/logging"
	"github.com/jrsteele09/go-session-client/navigation"
	"github.com/jrsteele09/go-session-client/refresh"
	"github.com/jrsteele09/go-session-client/roles"
	"github.com/jrsteele09/go-session-client/session"
	"github.com/jrsteele09/go-session-client/transport"
)

// redisSessionTTL bounds how long an idle session survives in Redis.
const redisSessionTTL = 7 * 24 * time.Hour

func main() {
	_ = godotenv.Load()
	if err := newRootCmd(config.New()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\n⛔️%s\n\n", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	cfg       config.Config
	apiURL    string
	portalURL string
	role      string
	logLevel  string
}

func newRootCmd(cfg config.Config) *cobra.Command {
	opts := &rootOptions{cfg: cfg}

	root := &cobra.Command{
		Use:           "sessionctl",
		Short:         "Manage a telehealth portal session from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(opts.logLevel, cfg.GetEnv())
		},
	}
	root.PersistentFlags().StringVar(&opts.apiURL, "api", cfg.GetAPIBaseURL(), "backend base URL")
	root.PersistentFlags().StringVar(&opts.portalURL, "portal", "http://localhost"+cfg.GetPort(), "portal URL printed when the session ends")
	root.PersistentFlags().StringVar(&opts.role, "role", "", "portal role hint (admin, provider, patient)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level")

	root.AddCommand(
		newLoginCmd(opts),
		newStatusCmd(opts),
		newGetCmd(opts),
		newTokenCmd(opts),
		newRefreshCmd(opts),
		newLogoutCmd(opts),
	)
	return root
}

// cliSession is everything one command invocation needs.
type cliSession struct {
	ctx     context.Context
	store   credentials.Store
	manager *session.Manager
	api     *apiclient.Client
	public  *apiclient.Client
	close   func()
}

func (o *rootOptions) open(cmd *cobra.Command) (*cliSession, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if r := roles.Parse(o.role); r.Valid() {
		ctx = roles.NewContext(ctx, r)
	}

	store, closeStore, err := o.store(ctx)
	if err != nil {
		return nil, err
	}

	nav, err := navigation.NewHardNavigator(o.portalURL, func(u string) error {
		_, err := fmt.Fprintf(cmd.ErrOrStderr(), "Session ended. Sign in again at %s\n", u)
		return err
	})
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("invalid portal url: %w", err)
	}

	plain := transport.NewPlainClient(nil, o.cfg.GetHTTPRetryMax())
	manager, err := session.New(store,
		refresh.NewClient(o.apiURL, o.cfg.GetRefreshPath(), plain),
		session.WithNavigator(nav),
		session.WithCacheTTL(o.cfg.GetCacheTTL()),
		session.WithRefreshBuffer(o.cfg.GetRefreshBuffer()),
	)
	if err != nil {
		closeStore()
		return nil, err
	}

	authed := transport.NewClient(nil, manager, o.cfg.GetHTTPRetryMax(),
		transport.WithLoginEndpoints(o.cfg.GetLoginEndpoints()...),
		transport.WithBenign401(o.cfg.GetBenign401Endpoints()...),
	)

	return &cliSession{
		ctx:     ctx,
		store:   store,
		manager: manager,
		api:     apiclient.New(o.apiURL, authed),
		public:  apiclient.New(o.apiURL, plain),
		close:   closeStore,
	}, nil
}

// store keeps credentials in Redis when REDIS_URL is set, otherwise in a
// file under the credentials directory. Both are keyed by the backend URL.
func (o *rootOptions) store(ctx context.Context) (credentials.Store, func(), error) {
	if addr := o.cfg.GetRedisURL(); addr != "" {
		client, err := redisstore.NewClient(ctx, addr, o.cfg.GetRedisPassword())
		if err != nil {
			return nil, nil, err
		}
		return redisstore.New(client, sessionID(o.apiURL), redisSessionTTL), func() { _ = client.Close() }, nil
	}
	return filestore.New(o.cfg.GetCredentialsDir(), o.apiURL), func() {}, nil
}

func sessionID(apiURL string) string {
	sum := sha256.Sum256([]byte("sessionctl:" + apiURL))
	return hex.EncodeToString(sum[:])
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
