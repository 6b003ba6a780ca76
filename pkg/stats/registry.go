package stats

import (
	"fmt"
	"sync"

	"github.com/dgraph-io/ristretto/v2"

	"minidb/pkg/catalog"
	"minidb/pkg/logging"
)

// The stats registry is process-wide, keyed by table name. The planner
// initialises it lazily and it lives until process exit. A dropped entry is
// harmless — statistics are recomputed on the next sweep — which is what
// makes an admission-based cache acceptable here.
var (
	registry     *ristretto.Cache[string, *TableStats]
	registryOnce sync.Once
)

func statsRegistry() *ristretto.Cache[string, *TableStats] {
	registryOnce.Do(func() {
		cache, err := ristretto.NewCache(&ristretto.Config[string, *TableStats]{
			NumCounters: 10_000,
			MaxCost:     1 << 20,
			BufferItems: 64,
		})
		if err != nil {
			panic(fmt.Sprintf("stats registry: %v", err))
		}
		registry = cache
	})
	return registry
}

// GetTableStats returns the statistics registered under the table name.
func GetTableStats(tableName string) (*TableStats, bool) {
	return statsRegistry().Get(tableName)
}

// SetTableStats registers statistics under the table name.
func SetTableStats(tableName string, ts *TableStats) {
	cache := statsRegistry()
	cache.Set(tableName, ts, 1)
	cache.Wait()
}

// ComputeStatistics scans every table registered in the catalog and
// refreshes its registry entry. The planner calls this once per session
// before costing plans.
func ComputeStatistics(cat *catalog.Catalog, pool Pool) error {
	log := logging.GetLogger()
	log.Info("computing table stats")

	for _, id := range cat.TableIDs() {
		name, err := cat.GetTableName(id)
		if err != nil {
			return err
		}
		file, err := cat.GetDbFile(id)
		if err != nil {
			return err
		}

		ts, err := NewTableStats(file, pool, IOCostPerPage)
		if err != nil {
			return fmt.Errorf("computing stats for table %q: %w", name, err)
		}
		SetTableStats(name, ts)
		log.Debug("table stats ready", "table", name,
			"tuples", ts.TotalTuples(), "pages", ts.NumPages())
	}

	log.Info("table stats done")
	return nil
}
