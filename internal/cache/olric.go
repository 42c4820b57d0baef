package cache

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"regexp"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/olric-data/olric"
	olricconfig "github.com/olric-data/olric/config"
	"github.com/rs/zerolog"
)

// parseBindAddr splits "host:port" or a bare host. Port is 0 when absent.
func parseBindAddr(addr string) (h string, p int) {
	h, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 0
	}
	p, err = strconv.Atoi(portStr)
	if err != nil {
		return h, 0
	}
	return h, p
}

// olricStore implements Store on an Olric DMap, either through an embedded
// node or a cluster client. Keys are stored as "<prefix>:<key>".
type olricStore struct {
	db     *olric.Olric // embedded node, nil in client mode
	client olric.Client
	dmap   olric.DMap
	log    *zerolog.Logger
	name   string
	prefix string
	mu     sync.RWMutex
	closed atomic.Bool
}

// Ensure olricStore implements the required interfaces.
var (
	_ Store          = (*olricStore)(nil)
	_ Pinger         = (*olricStore)(nil)
	_ PatternDeleter = (*olricStore)(nil)
	_ Named          = (*olricStore)(nil)
)

// newOlricStore starts an embedded node or connects to an existing cluster.
func newOlricStore(ctx context.Context, cfg *OlricConfig, prefix string) (*olricStore, error) {
	olricLog := partLogger("olric")

	dmapName := cfg.DMapName
	if dmapName == "" {
		dmapName = DefaultOlricDMapName
	}

	var (
		s   *olricStore
		err error
	)
	if cfg.Embedded {
		olricLog.Debug().Str("mode", "embedded").Msg("olric: starting embedded node")
		s, err = newEmbeddedOlricStore(ctx, cfg, dmapName, &olricLog)
	} else {
		olricLog.Debug().Str("mode", "client").Strs("addresses", cfg.Addresses).Msg("olric: connecting to cluster")
		s, err = newClientOlricStore(ctx, cfg, dmapName, &olricLog)
	}
	if err != nil {
		return nil, err
	}
	s.prefix = prefix
	return s, nil
}

func newEmbeddedOlricStore(
	ctx context.Context, cfg *OlricConfig, dmapName string, lg *zerolog.Logger,
) (*olricStore, error) {
	env := cfg.Environment
	if env == "" {
		env = "local"
	}
	c := olricconfig.New(env)

	bindAddr, bindPort := parseBindAddr(cfg.BindAddr)
	c.BindAddr = bindAddr
	if bindPort > 0 {
		c.BindPort = bindPort
	}
	if len(cfg.Peers) > 0 {
		c.Peers = cfg.Peers
	}

	// Olric logs through the standard logger; keep it quiet.
	c.LogOutput = io.Discard
	c.Logger = log.New(io.Discard, "", 0)

	// Must be set before olric.New.
	ready := make(chan struct{})
	c.Started = func() {
		close(ready)
	}

	db, err := olric.New(c)
	if err != nil {
		lg.Error().Err(err).Msg("olric: failed to create embedded instance")
		return nil, err
	}

	startErr := make(chan error, 1)
	go func() {
		if err := db.Start(); err != nil {
			startErr <- err
		}
	}()

	startupCtx, cancel := context.WithTimeout(ctx, defaultOlricStartupWaitMS*time.Millisecond)
	defer cancel()

	select {
	case <-ready:
		lg.Debug().Msg("olric: embedded node ready")
	case err := <-startErr:
		lg.Error().Err(err).Msg("olric: embedded node failed to start")
		return nil, err
	case <-startupCtx.Done():
		lg.Warn().Msg("olric: embedded node startup timeout, proceeding")
	}

	client := db.NewEmbeddedClient()

	dm, err := client.NewDMap(dmapName)
	if err != nil {
		lg.Error().Err(err).Str("dmap", dmapName).Msg("olric: failed to create dmap")
		if shutdownErr := db.Shutdown(context.Background()); shutdownErr != nil {
			lg.Error().Err(shutdownErr).Msg("olric: failed to shutdown after dmap creation error")
		}
		return nil, err
	}

	lg.Info().
		Str("bind_addr", bindAddr).
		Int("bind_port", bindPort).
		Str("dmap", dmapName).
		Int("peers", len(cfg.Peers)).
		Msg("olric embedded store created")

	return &olricStore{
		client: client,
		dmap:   dm,
		db:     db,
		name:   dmapName,
		log:    lg,
	}, nil
}

func newClientOlricStore(
	ctx context.Context, cfg *OlricConfig, dmapName string, lg *zerolog.Logger,
) (*olricStore, error) {
	if len(cfg.Addresses) == 0 {
		lg.Error().Msg("olric: addresses required for client mode")
		return nil, errors.New("cache: olric addresses required for client mode")
	}

	client, err := olric.NewClusterClient(cfg.Addresses)
	if err != nil {
		lg.Error().Err(err).Strs("addresses", cfg.Addresses).Msg("olric: failed to connect to cluster")
		return nil, err
	}

	dm, err := client.NewDMap(dmapName)
	if err != nil {
		lg.Error().Err(err).Str("dmap", dmapName).Msg("olric: failed to create dmap")
		if closeErr := client.Close(ctx); closeErr != nil {
			lg.Error().Err(closeErr).Msg("olric: failed to close client after dmap creation error")
		}
		return nil, err
	}

	lg.Info().
		Strs("addresses", cfg.Addresses).
		Str("dmap", dmapName).
		Msg("olric cluster store created")

	return &olricStore{
		client: client,
		dmap:   dm,
		name:   dmapName,
		log:    lg,
	}, nil
}

func (o *olricStore) prefixKey(key string) string {
	return o.prefix + ":" + key
}

func (o *olricStore) Mode() Mode {
	return ModeOlric
}

// Get retrieves a value. Returns ErrNotFound on olric.ErrKeyNotFound.
func (o *olricStore) Get(ctx context.Context, key string) ([]byte, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.closed.Load() {
		return nil, ErrClosed
	}

	resp, err := o.dmap.Get(ctx, o.prefixKey(key))
	if errors.Is(err, olric.ErrKeyNotFound) {
		o.log.Debug().Str("key", key).Bool("hit", false).Msg("cache get")
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get", err)
	}

	value, err := resp.Byte()
	if err != nil {
		return nil, unavailable("get", err)
	}

	o.log.Debug().Str("key", key).Bool("hit", true).Int("size", len(value)).Msg("cache get")
	return value, nil
}

// SetWithTTL stores a value with olric.EX.
func (o *olricStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.closed.Load() {
		return ErrClosed
	}

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	if err := o.dmap.Put(ctx, o.prefixKey(key), valueCopy, olric.EX(ttl)); err != nil {
		return unavailable("set", err)
	}

	o.log.Debug().Str("key", key).Int("size", len(value)).Dur("ttl", ttl).Msg("cache set")
	return nil
}

// Delete removes a key. Missing keys are not an error.
func (o *olricStore) Delete(ctx context.Context, key string) error {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.closed.Load() {
		return ErrClosed
	}

	_, err := o.dmap.Delete(ctx, o.prefixKey(key))
	if err != nil && !errors.Is(err, olric.ErrKeyNotFound) {
		return unavailable("delete", err)
	}
	o.log.Debug().Str("key", key).Msg("cache delete")
	return nil
}

// DeleteMatching scans the DMap with an anchored regular expression on the
// literal scan prefix and deletes every key the pattern selects.
func (o *olricStore) DeleteMatching(ctx context.Context, p Pattern) ([]string, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.closed.Load() {
		return nil, ErrClosed
	}

	it, err := o.dmap.Scan(ctx, olric.Match("^"+regexp.QuoteMeta(o.prefixKey(p.ScanPrefix()))))
	if err != nil {
		return nil, unavailable("scan", err)
	}
	trim := len(o.prefix) + 1
	var matched []string
	for it.Next() {
		if logical := it.Key()[trim:]; p.Match(logical) {
			matched = append(matched, logical)
		}
	}
	it.Close()

	removed := make([]string, 0, len(matched))
	for _, key := range matched {
		if _, err := o.dmap.Delete(ctx, o.prefixKey(key)); err != nil && !errors.Is(err, olric.ErrKeyNotFound) {
			return removed, unavailable("delete", err)
		}
		removed = append(removed, key)
	}

	o.log.Debug().Str("pattern", p.String()).Int("removed", len(removed)).Msg("cache invalidate")
	return removed, nil
}

// Ping reads a reserved key; ErrKeyNotFound means the cluster answered.
func (o *olricStore) Ping(ctx context.Context) error {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.closed.Load() {
		return ErrClosed
	}

	_, err := o.dmap.Get(ctx, o.prefixKey(pingKey))
	if err == nil || errors.Is(err, olric.ErrKeyNotFound) {
		return nil
	}
	o.log.Debug().Err(err).Msg("cache ping: unhealthy")
	return unavailable("ping", err)
}

// Close shuts down the embedded node or disconnects the client.
// Close is idempotent.
func (o *olricStore) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.closed.CompareAndSwap(false, true) {
		return nil
	}

	ctx := context.Background()

	if o.dmap != nil {
		if dmapErr := o.dmap.Close(ctx); dmapErr != nil {
			o.log.Debug().Err(dmapErr).Msg("olric: dmap close error during shutdown")
		}
	}

	if o.db != nil {
		if err := o.db.Shutdown(ctx); err != nil {
			o.log.Error().Err(err).Msg("olric: embedded node shutdown error")
			return err
		}
		o.log.Info().Msg("olric embedded store closed")
		return nil
	}

	if o.client != nil {
		if err := o.client.Close(ctx); err != nil {
			o.log.Error().Err(err).Msg("olric: client disconnect error")
			return err
		}
		o.log.Info().Msg("olric cluster store closed")
	}
	return nil
}
