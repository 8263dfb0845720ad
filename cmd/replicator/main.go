// Command replicator runs one Data Replicator against a sync source,
// exposing its status and metrics over HTTP. Grounded on the teacher's
// cmd/ccr_syncer/ccr_syncer.go: flag-driven config, utils.InitLog in
// init(), a db_type switch between sqlite3 and mysql, an HTTP service
// goroutine, a SignalMux-driven shutdown, and a periodic Monitor —
// generalized from a multi-job CCR syncer to a single replica-set
// follower.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/doriscore/datareplicator/model"
	"github.com/doriscore/datareplicator/repl"
	"github.com/doriscore/datareplicator/repl/config"
	"github.com/doriscore/datareplicator/repl/coordinator"
	"github.com/doriscore/datareplicator/repl/executor"
	"github.com/doriscore/datareplicator/repl/source"
	replstorage "github.com/doriscore/datareplicator/repl/storage"
	"github.com/doriscore/datareplicator/service"
	"github.com/doriscore/datareplicator/storage"
	"github.com/doriscore/datareplicator/utils"
	"github.com/doriscore/datareplicator/xmetrics"
)

var (
	name    string
	host    string
	port    int
	version bool

	dbType     string
	dbPath     string
	dbHost     string
	dbPort     int
	dbUser     string
	dbPassword string

	syncSources string
	remoteNS    string

	initialSync bool
)

func init() {
	flag.BoolVar(&version, "version", false, "print the program's version and exit")

	flag.StringVar(&name, "name", "default", "name of this replication, scopes its logs and metrics")
	flag.StringVar(&host, "host", "127.0.0.1", "host this process advertises for its HTTP service")
	flag.IntVar(&port, "port", 8080, "HTTP service port")

	flag.StringVar(&dbType, "db_type", "sqlite3", "storage backend: sqlite3 or mysql")
	flag.StringVar(&dbPath, "db_dir", "replicator.db", "sqlite3 db file")
	flag.StringVar(&dbHost, "db_host", "127.0.0.1", "mysql host")
	flag.IntVar(&dbPort, "db_port", 3306, "mysql port")
	flag.StringVar(&dbUser, "db_user", "root", "mysql user")
	flag.StringVar(&dbPassword, "db_password", "", "mysql password")

	flag.StringVar(&syncSources, "sync_sources", "", "comma-separated host:port candidates for the sync source")
	flag.StringVar(&remoteNS, "remote_oplog_namespace", "local.oplog.rs", "database.collection of the remote oplog")
	flag.BoolVar(&initialSync, "initial_sync", false, "run Initial Sync before entering steady-state replication")

	flag.Parse()

	utils.InitLog()
}

func parseHostPort(s string) (model.HostPort, error) {
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return model.HostPort{}, fmt.Errorf("%q is not host:port", s)
	}
	p, err := strconv.Atoi(s[idx+1:])
	if err != nil {
		return model.HostPort{}, fmt.Errorf("%q is not host:port: %w", s, err)
	}
	return model.HostPort{Host: s[:idx], Port: p}, nil
}

func parseNamespace(s string) (model.Namespace, error) {
	idx := strings.Index(s, ".")
	if idx < 0 {
		return model.Namespace{}, fmt.Errorf("%q is not database.collection", s)
	}
	return model.Namespace{Database: s[:idx], Collection: s[idx+1:]}, nil
}

// defaultApplierFn writes every op in a batch to store as a cloned
// document of the op's own namespace, the simplest possible stand-in for
// the out-of-scope storage layer that actually interprets oplog op types
// (insert/update/delete); a real deployment supplies its own
// model.ApplierFn via config.Options.ApplierFn.
func defaultApplierFn(store replstorage.Storage) model.ApplierFn {
	return func(ops []model.Document) (model.Timestamp, error) {
		var last model.Timestamp
		for _, op := range ops {
			ns, _ := op["ns"].(model.Namespace)
			if !ns.IsZero() {
				if err := store.PutCollectionDoc(context.Background(), ns, op); err != nil {
					return last, err
				}
			}
			if ts, ok := op.Ts(); ok {
				last = ts
			}
		}
		return last, nil
	}
}

func newStorage() (replstorage.Storage, error) {
	switch dbType {
	case "sqlite3":
		return storage.NewSQLiteDB(dbPath)
	case "mysql":
		return storage.NewMysqlDB(dbHost, dbPort, dbUser, dbPassword)
	default:
		return nil, fmt.Errorf("unknown db_type %q", dbType)
	}
}

func parseSyncSources() []model.HostPort {
	if syncSources == "" {
		return nil
	}
	var out []model.HostPort
	for _, s := range strings.Split(syncSources, ",") {
		hp, err := parseHostPort(strings.TrimSpace(s))
		if err != nil {
			log.Fatalf("invalid sync_sources entry: %v", err)
		}
		out = append(out, hp)
	}
	return out
}

func main() {
	if version {
		printVersion()
	}
	log.Infof("replicator start, version: %s", getVersion())

	utils.TagReplication(name)

	if err := xmetrics.InitGlobal(name); err != nil {
		log.Fatalf("init metrics failed: %+v", err)
	}

	store, err := newStorage()
	if err != nil {
		log.Fatalf("init storage failed: %+v", err)
	}

	ns, err := parseNamespace(remoteNS)
	if err != nil {
		log.Fatalf("invalid remote_oplog_namespace: %v", err)
	}

	cfg := config.Default()
	cfg.Name = name
	cfg.RemoteOplogNamespace = ns
	cfg.ApplierFn = defaultApplierFn(store)

	candidates := parseSyncSources()
	if len(candidates) == 0 {
		log.Warn("no sync_sources configured; the in-process Fake source stands in for a real network peer")
	}

	// The network executor and remote source are external collaborators
	// by the design's own scope (§1): no real networked implementation
	// ships in this module. Fake is the in-process stand-in a real
	// deployment replaces with its own driver/transport client.
	src := source.NewFake()
	coord := coordinator.New(candidates)
	exec := executor.NewPoolExecutor(4)
	exec.Start()
	defer exec.Shutdown()

	r := repl.New(exec, src, store, coord, cfg)

	httpService := service.NewHttpServer(host, port, store, r, name)
	go func() {
		if err := httpService.Start(); err != nil {
			log.Fatalf("http service start error: %+v", err)
		}
	}()
	time.Sleep(time.Second) // give the listener a moment before declaring readiness

	monitor := NewMonitor(r)
	go monitor.Start()

	if initialSync {
		if _, err := r.InitialSync(); err != nil {
			log.Fatalf("initial sync failed: %+v", err)
		}
	}
	if err := r.Start(); err != nil {
		log.Fatalf("start steady-state replication failed: %+v", err)
	}

	mux := NewSignalMux(func(sig os.Signal) bool {
		log.Infof("shutting down on signal %s", sig)
		r.Shutdown()
		monitor.Stop()
		if err := httpService.Stop(); err != nil {
			log.Errorf("http service stop error: %+v", err)
		}
		return true
	})
	mux.Serve()
}
