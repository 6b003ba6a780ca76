package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"minidb/pkg/catalog"
	"minidb/pkg/concurrency/transaction"
	"minidb/pkg/config"
	"minidb/pkg/log"
	"minidb/pkg/logging"
	"minidb/pkg/memory"
	"minidb/pkg/primitives"
	"minidb/pkg/stats"
	"minidb/pkg/storage/heap"
	"minidb/pkg/storage/page"
	"minidb/pkg/tuple"
	"minidb/pkg/types"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "minidb: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		logging.GetLogger().Error("fatal", "error", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func run(cfg *config.Config) error {
	if err := logging.Init(logging.Config{
		Level:      logging.LogLevel(cfg.Logging.Level),
		OutputPath: cfg.Logging.Output,
		Format:     cfg.Logging.Format,
	}); err != nil {
		return err
	}
	logger := logging.GetLogger()

	page.SetSize(cfg.Storage.PageSize)

	if err := os.MkdirAll(cfg.Storage.Workdir, 0o750); err != nil {
		return err
	}

	wal, err := log.NewLogFile(cfg.Log.Path)
	if err != nil {
		return err
	}
	defer wal.Close()

	cat := catalog.NewCatalog()
	pool := memory.NewBufferPool(cfg.Pool.Pages, cat, wal)
	pool.SetLockTimeout(time.Duration(cfg.Pool.LockTimeoutMS) * time.Millisecond)

	td, err := tuple.NewTupleDesc(
		[]types.Type{types.IntType, types.StringType},
		[]string{"id", "name"},
	)
	if err != nil {
		return err
	}

	file, err := heap.NewHeapFile(
		primitives.Filepath(filepath.Join(cfg.Storage.Workdir, "demo.dat")), td)
	if err != nil {
		return err
	}
	cat.AddTable(file, "demo")
	logger.Info("table registered", "name", "demo", "id", file.GetID())

	tid := transaction.NewTransactionID()
	for i, name := range []string{"ada", "grace", "edsger"} {
		t := tuple.NewTuple(td)
		if err := t.SetField(0, types.NewIntField(int32(i+1))); err != nil {
			return err
		}
		if err := t.SetField(1, types.NewStringField(name)); err != nil {
			return err
		}
		if err := pool.InsertTuple(tid, file.GetID(), t); err != nil {
			return err
		}
	}
	if err := pool.TransactionComplete(tid, true); err != nil {
		return err
	}
	logger.Info("demo rows committed")

	scanTid := transaction.NewTransactionID()
	it := file.Iterator(scanTid, pool)
	if err := it.Open(); err != nil {
		return err
	}
	for {
		hasNext, err := it.HasNext()
		if err != nil {
			return err
		}
		if !hasNext {
			break
		}
		t, err := it.Next()
		if err != nil {
			return err
		}
		fmt.Println(t)
	}
	if err := it.Close(); err != nil {
		return err
	}
	if err := pool.TransactionComplete(scanTid, true); err != nil {
		return err
	}

	if err := stats.ComputeStatistics(cat, pool); err != nil {
		return err
	}
	if ts, ok := stats.GetTableStats("demo"); ok {
		logger.Info("scan cost", "table", "demo", "cost", ts.EstimateScanCost())
	}

	return pool.FlushAllPages()
}
