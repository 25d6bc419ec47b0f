// Command mcadmin is the process that runs every subsystem from spec.md
// §2's system overview: the Instance Supervisor, Event Pipeline, Player
// Tracker, Cron Engine, and DNS/Router Reconciler, plus the console
// WebSocket bridge and the server tombstone tracker. Wiring follows the
// teacher's manmanv2/api/main.go shape: a run() function building every
// collaborator from config, then blocking on a signal-driven shutdown.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xyqyear/mcadmin/internal/config"
	"github.com/xyqyear/mcadmin/internal/cron"
	"github.com/xyqyear/mcadmin/internal/cron/jobs"
	"github.com/xyqyear/mcadmin/internal/db/postgres"
	"github.com/xyqyear/mcadmin/internal/dns"
	"github.com/xyqyear/mcadmin/internal/dns/provider/dnspod"
	"github.com/xyqyear/mcadmin/internal/dns/provider/huawei"
	"github.com/xyqyear/mcadmin/internal/dockerengine"
	"github.com/xyqyear/mcadmin/internal/dynamicconfig"
	mcerrors "github.com/xyqyear/mcadmin/internal/errors"
	"github.com/xyqyear/mcadmin/internal/events"
	"github.com/xyqyear/mcadmin/internal/logging"
	"github.com/xyqyear/mcadmin/internal/logpipeline"
	"github.com/xyqyear/mcadmin/internal/players"
	"github.com/xyqyear/mcadmin/internal/servertracker"
	"github.com/xyqyear/mcadmin/internal/skinstore"
	"github.com/xyqyear/mcadmin/internal/snapshot"
	"github.com/xyqyear/mcadmin/internal/supervisor"
	"github.com/xyqyear/mcadmin/internal/ws"
	"github.com/xyqyear/mcadmin/libs/go/s3"
)

func main() {
	logging.Configure(logging.Config{})
	logger := logging.Get("main")

	if err := run(logger); err != nil {
		logger.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	s3Client, err := newSkinS3Client(ctx)
	if err != nil {
		return fmt.Errorf("init skin storage: %w", err)
	}
	db.Players.WithSkinStore(skinstore.New(s3Client))

	engine, err := dockerengine.NewClient(cfg.DockerSocket)
	if err != nil {
		return fmt.Errorf("connect docker engine: %w", err)
	}

	sup := supervisor.New(cfg.ServersRoot, engine)
	dispatcher := events.NewDispatcher(logger)

	logParserCfg := dynamicconfig.NewStore[dynamicconfig.LogParserConfig]("log_parser", dynamicconfigPersist(ctx, db, "log_parser"))
	if err := loadDynamicConfig(ctx, db, "log_parser", logParserCfg); err != nil {
		return fmt.Errorf("load log_parser config: %w", err)
	}
	parser, err := logpipeline.NewParser(logParserCfg.Snapshot())
	if err != nil {
		return fmt.Errorf("build log parser: %w", err)
	}
	monitor := logpipeline.NewMonitor(logging.Get("logpipeline"), dispatcher, func() *logpipeline.Parser { return parser })

	// Player tracker collaborators self-register on the dispatcher.
	players.NewIdentityTracker(logging.Get("players.identity"), db.Players, players.NewProfileClient(), dispatcher)
	players.NewSessionTracker(logging.Get("players.session"), db.Players, dispatcher)
	players.NewChatTracker(logging.Get("players.chat"), db.Players, dispatcher)
	players.NewSkinUpdater(logging.Get("players.skin"), db.Players, players.NewProfileClient(), dispatcher)

	heartbeat := players.NewHeartbeatManager(logging.Get("players.heartbeat"), db.Players, dispatcher, cfg.HeartbeatInterval, cfg.CrashThreshold)
	heartbeat.Start(ctx)

	rconValidator := players.NewRCONValidator(logging.Get("players.rcon"), db.Players, supervisorPlayersAdapter{sup}, dispatcher, 60*time.Second)
	rconValidator.Start(ctx)

	for _, id := range mustListInstances(logger, sup) {
		inst, err := sup.Get(id)
		if err != nil {
			logger.Warn("skip watching instance at startup", "server_id", id, "error", err)
			continue
		}
		monitor.Watch(ctx, id, inst.DataPath()+"/logs/latest.log")
	}

	registry := cron.NewRegistry()
	snapshotCfg, err := loadSnapshotConfig(ctx, db)
	if err != nil {
		return fmt.Errorf("load snapshot config: %w", err)
	}
	snapMgr := snapshot.NewManager(cfg.SnapshotRepo, snapshotCfg.password)
	registry.Register(jobs.NewBackupRegistration(logging.Get("cron.backup"), snapMgr, supervisorJobsAdapter{sup}, cfg.ServersRoot))
	registry.Register(jobs.NewRestartRegistration(logging.Get("cron.restart"), supervisorJobsAdapter{sup}))

	cronManager := cron.NewManager(logging.Get("cron"), db.Cron, registry)
	if err := cronManager.Recover(ctx); err != nil {
		logger.Error("cron recovery failed", "error", err)
	}
	cronManager.Start()
	defer cronManager.Stop(ctx)

	serverTracker := servertracker.New(logging.Get("servertracker"), supervisorListerAdapter{sup}, db.Servers, 60*time.Second)
	if err := serverTracker.Reconcile(ctx); err != nil {
		logger.Error("initial server tracker reconcile failed", "error", err)
	}
	go serverTracker.Run(ctx)

	dnsCfg := dynamicconfig.NewStore[dynamicconfig.DNSConfig]("dns", dynamicconfigPersist(ctx, db, "dns"))
	if err := loadDynamicConfig(ctx, db, "dns", dnsCfg); err != nil {
		return fmt.Errorf("load dns config: %w", err)
	}
	reconciler := dns.New(logging.Get("dns"), dnsCfg, supervisorListerAdapter{sup}, newDNSProvider)

	bridge := ws.NewBridge(logging.Get("ws"), supervisorWSAdapter{sup})

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/console/", consoleHandler(bridge))
	server := &http.Server{Addr: cfg.ListenAddress, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("mcadmin starting", "listen_address", cfg.ListenAddress)
	if _, err := reconciler.Update(ctx); err != nil {
		logger.Warn("initial dns reconcile failed", "error", err)
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func consoleHandler(bridge *ws.Bridge) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serverID := r.URL.Path[len("/ws/console/"):]
		if serverID == "" {
			http.Error(w, "missing server id", http.StatusBadRequest)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if err := bridge.Serve(r.Context(), conn, serverID); err != nil {
			slog.Default().Warn("console session ended with error", "server_id", serverID, "error", err)
		}
	}
}

func newSkinS3Client(ctx context.Context) (*s3.Client, error) {
	return s3.NewClient(ctx, s3.Config{
		Bucket:    os.Getenv("SKIN_S3_BUCKET"),
		Region:    os.Getenv("SKIN_S3_REGION"),
		Endpoint:  os.Getenv("SKIN_S3_ENDPOINT"),
		AccessKey: os.Getenv("SKIN_S3_ACCESS_KEY"),
		SecretKey: os.Getenv("SKIN_S3_SECRET_KEY"),
	})
}

func newDNSProvider(cfg dynamicconfig.DNSConfig) (dns.Provider, error) {
	switch cfg.Provider {
	case "dnspod":
		return dnspod.New(cfg.SecretID, cfg.SecretKey, cfg.Domain)
	case "huawei":
		return huawei.New(cfg.SecretID, cfg.SecretKey, cfg.Region, cfg.Domain)
	default:
		return nil, mcerrors.NewValidation("provider", fmt.Sprintf("unknown dns provider %q", cfg.Provider))
	}
}

type snapshotConfig struct {
	password string
}

// loadSnapshotConfig reads the snapshot repository password from the
// environment rather than dynamicconfig: it is a secret, not a
// hot-reloadable operational setting.
func loadSnapshotConfig(ctx context.Context, db *postgres.DB) (snapshotConfig, error) {
	return snapshotConfig{password: os.Getenv("SNAPSHOT_REPO_PASSWORD")}, nil
}

// loadDynamicConfig seeds store from its persisted row, if one exists.
func loadDynamicConfig[T any](ctx context.Context, db *postgres.DB, module string, store *dynamicconfig.Store[T]) error {
	version, raw, found, err := db.DynamicConfig.Load(ctx, module)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	return store.Load(version, raw)
}

func dynamicconfigPersist(ctx context.Context, db *postgres.DB, module string) func(string, uint64, json.RawMessage) error {
	return func(mod string, version uint64, raw json.RawMessage) error {
		return db.DynamicConfig.Save(ctx, mod, version, raw)
	}
}

func mustListInstances(logger *slog.Logger, sup *supervisor.Supervisor) []string {
	ids, err := sup.List()
	if err != nil {
		logger.Error("list instances at startup failed", "error", err)
		return nil
	}
	return ids
}

// --- adapters bridging supervisor.Supervisor to the narrow interfaces each
// collaborator package defines, per the project's avoid-import-cycles rule. ---

type supervisorListerAdapter struct{ sup *supervisor.Supervisor }

func (a supervisorListerAdapter) List() ([]string, error) { return a.sup.List() }

func (a supervisorListerAdapter) GamePort(id string) (int, error) {
	inst, err := a.sup.Get(id)
	if err != nil {
		return 0, err
	}
	return inst.GamePort()
}

type supervisorPlayersAdapter struct{ sup *supervisor.Supervisor }

func (a supervisorPlayersAdapter) ListPlayers(ctx context.Context, serverID string) ([]string, error) {
	inst, err := a.sup.Get(serverID)
	if err != nil {
		return nil, err
	}
	return inst.ListPlayers(ctx)
}

type supervisorJobsAdapter struct{ sup *supervisor.Supervisor }

func (a supervisorJobsAdapter) Get(id string) (jobs.Instance, error) { return a.sup.Get(id) }

type supervisorWSAdapter struct{ sup *supervisor.Supervisor }

func (a supervisorWSAdapter) Get(id string) (ws.Instance, error) { return a.sup.Get(id) }
