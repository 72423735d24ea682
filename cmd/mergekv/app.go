package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jrife/mergekv/algebra"
	"github.com/jrife/mergekv/merge"
	"github.com/jrife/mergekv/option"
	"github.com/jrife/mergekv/scheduler"
	"github.com/jrife/mergekv/storage/kv"
	"github.com/jrife/mergekv/storage/kv/marshaled"
	"github.com/jrife/mergekv/storage/kv/plugins"
	"go.uber.org/zap"
)

// Options are the global flags
type Options struct {
	Driver       string `long:"driver" short:"d" default:"bbolt" choice:"bbolt" choice:"leveldb" choice:"memory" description:"kv storage driver"`
	Path         string `long:"path" short:"p" default:"mergekv.db" description:"path of the store"`
	Bucket       string `long:"bucket" description:"bbolt bucket holding the counters"`
	Namespace    string `long:"namespace" short:"n" description:"prefix every counter key with this namespace"`
	CollapseZero bool   `long:"collapse-zero" description:"delete counters that reach zero"`
	Workers      int    `long:"workers" default:"4" description:"number of storage workers"`
	Verbose      bool   `long:"verbose" short:"v" description:"log debug output"`
}

// env is everything a command needs to talk to the store
type env struct {
	logger    *zap.Logger
	store     kv.Store
	pool      *scheduler.Pool
	mergeable *merge.Mergeable[string, int64]
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}

	return zap.NewProduction()
}

func open(options *Options) (*env, error) {
	logger, err := newLogger(options.Verbose)

	if err != nil {
		return nil, fmt.Errorf("could not create logger: %w", err)
	}

	plugin := plugins.Plugin(options.Driver)

	if plugin == nil {
		return nil, fmt.Errorf("unknown driver %q, expected one of %s", options.Driver, strings.Join(plugins.Names(), ", "))
	}

	pluginOptions := kv.PluginOptions{"path": options.Path}

	if options.Bucket != "" && options.Driver == "bbolt" {
		pluginOptions["bucket"] = options.Bucket
	}

	store, err := plugin.NewStore(pluginOptions)

	if err != nil {
		return nil, fmt.Errorf("could not open %s store at %s: %w", options.Driver, options.Path, err)
	}

	if options.Namespace != "" {
		store = kv.Namespace(store, []byte(options.Namespace))
	}

	pool := scheduler.NewPool(scheduler.PoolConfig{Workers: options.Workers, Logger: logger})

	if err := pool.Start(); err != nil {
		store.Close()

		return nil, err
	}

	mergeable, err := merge.New(merge.Config[string, int64]{
		Store:        merge.NewKVStore(marshaled.New[string, int64](store, marshaled.String{}, marshaled.Int64{}), pool),
		Semigroup:    algebra.Sum[int64]{},
		CollapseZero: options.CollapseZero,
		PreferAtomic: true,
		Logger:       logger,
	})

	if err != nil {
		pool.Stop()
		store.Close()

		return nil, err
	}

	return &env{logger: logger, store: store, pool: pool, mergeable: mergeable}, nil
}

func (e *env) close() {
	e.pool.Stop()

	if err := e.store.Close(); err != nil {
		e.logger.Error("could not close store", zap.Error(err))
	}

	e.logger.Sync()
}

// parseDeltas parses key=delta pairs. Repeated keys are summed.
func parseDeltas(args []string) (map[string]int64, error) {
	batch := map[string]int64{}

	for _, arg := range args {
		i := strings.LastIndex(arg, "=")

		if i <= 0 {
			return nil, fmt.Errorf("%q is not of the form key=delta", arg)
		}

		delta, err := strconv.ParseInt(arg[i+1:], 10, 64)

		if err != nil {
			return nil, fmt.Errorf("%q: %w", arg, err)
		}

		batch[arg[:i]] += delta
	}

	return batch, nil
}

func formatValue(v option.Option[int64]) string {
	if n, ok := v.Get(); ok {
		return humanize.Comma(n)
	}

	return "-"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))

	for key := range m {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

type mergeCommand struct {
	options *Options
	out     io.Writer
}

// Execute implements flags.Commander
func (cmd *mergeCommand) Execute(args []string) error {
	batch, err := parseDeltas(args)

	if err != nil {
		return err
	}

	if len(batch) == 0 {
		return errors.New("expected at least one key=delta pair")
	}

	e, err := open(cmd.options)

	if err != nil {
		return err
	}

	defer e.close()

	return runMerge(context.Background(), e.mergeable, batch, writer(cmd.out))
}

func runMerge(ctx context.Context, m *merge.Mergeable[string, int64], batch map[string]int64, out io.Writer) error {
	partition, err := m.MultiMergeCollect(ctx, batch).Wait(ctx)

	if err != nil {
		return err
	}

	for _, key := range sortedKeys(batch) {
		if previous, ok := partition.Successes[key]; ok {
			// print what is stored now
			current, err := m.Get(ctx, key).Wait(ctx)

			if err != nil {
				fmt.Fprintf(out, "%s\t%s\terror: %v\n", key, formatValue(previous), err)

				continue
			}

			fmt.Fprintf(out, "%s\t%s\t%s\n", key, formatValue(previous), formatValue(current))
		} else {
			fmt.Fprintf(out, "%s\terror: %v\n", key, partition.Failures[key])
		}
	}

	if len(partition.Failures) > 0 {
		return fmt.Errorf("%d of %d merges failed", len(partition.Failures), partition.Len())
	}

	return nil
}

type getCommand struct {
	options *Options
	out     io.Writer
}

// Execute implements flags.Commander
func (cmd *getCommand) Execute(args []string) error {
	if len(args) == 0 {
		return errors.New("expected at least one key")
	}

	e, err := open(cmd.options)

	if err != nil {
		return err
	}

	defer e.close()

	return runGet(context.Background(), e.mergeable, args, writer(cmd.out))
}

func runGet(ctx context.Context, m *merge.Mergeable[string, int64], keys []string, out io.Writer) error {
	var failed int

	for _, key := range keys {
		v, err := m.Get(ctx, key).Wait(ctx)

		if err != nil {
			fmt.Fprintf(out, "%s\terror: %v\n", key, err)
			failed++

			continue
		}

		fmt.Fprintf(out, "%s\t%s\n", key, formatValue(v))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d reads failed", failed, len(keys))
	}

	return nil
}

func writer(out io.Writer) io.Writer {
	if out == nil {
		return os.Stdout
	}

	return out
}
