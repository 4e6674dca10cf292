package engine

import (
	"directoryhub/internal/models"
	"runtime"
	"sort"
	"sync"

	"github.com/labstack/gommon/log"
)

// AllCategory is the key of the unscoped distribution.
const AllCategory = "all"

func (cs *ColumnStore) Aggregate() *models.DashboardData {
	// 1. Dimensions
	numTypes := len(cs.TypeDict)
	numStates := len(cs.StateDict)
	rows := cs.Rows()

	// 2. Setup Workers
	numWorkers := runtime.NumCPU()
	if numWorkers > rows {
		numWorkers = 1
	}
	chunkSize := rows / numWorkers

	// THE MATRIX: Flattened [Type][State] -> [Type * NumStates + State]
	matrixSize := numTypes * numStates

	results := make(chan []int, numWorkers)
	var wg sync.WaitGroup

	// 3. Parallel Loop
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if i == numWorkers-1 {
			end = rows
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			matrix := make([]int, matrixSize)
			idsT := cs.TypeIDs
			idsS := cs.StateIDs
			for j := s; j < e; j++ {
				matrix[int(idsT[j])*numStates+int(idsS[j])]++
			}
			results <- matrix
		}(start, end)
	}

	go func() { wg.Wait(); close(results) }()

	// 4. Merge Phase (Reducer)
	final := make([]int, matrixSize)
	for m := range results {
		for i, c := range m {
			final[i] += c
		}
	}

	// 5. Build Result
	data := &models.DashboardData{
		StateCounts: make(map[string][]models.StateCount, numTypes+1),
		TypeCounts:  make([]models.StateCount, 0, numTypes),
		Rows:        rows,
	}

	allStates := make([]int, numStates)
	for t := 0; t < numTypes; t++ {
		typeTotal := 0
		byState := make([]models.StateCount, 0)
		for s := 0; s < numStates; s++ {
			c := final[t*numStates+s]
			if c == 0 {
				continue
			}
			allStates[s] += c
			typeTotal += c
			byState = append(byState, models.StateCount{Name: cs.StateDict[s], Count: c})
		}
		if reservedType(cs.TypeDict[t]) {
			continue
		}
		sortCounts(byState)
		data.StateCounts[cs.TypeDict[t]] = byState
		data.TypeCounts = append(data.TypeCounts, models.StateCount{Name: cs.TypeDict[t], Count: typeTotal})
	}
	sortCounts(data.TypeCounts)

	all := make([]models.StateCount, 0, numStates)
	for s, c := range allStates {
		if c > 0 {
			all = append(all, models.StateCount{Name: cs.StateDict[s], Count: c})
		}
	}
	sortCounts(all)
	data.StateCounts[AllCategory] = all

	return data
}

// reservedType reports whether a business type collides with the unscoped
// key. Its rows still count towards AllCategory.
func reservedType(name string) bool {
	if NormalizeCategory(name) != AllCategory {
		return false
	}
	log.Warnf("business type %q collides with %q; counted in %q only", name, AllCategory, AllCategory)
	return true
}

// sortCounts orders by count descending; ties keep first-seen order.
func sortCounts(rows []models.StateCount) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Count > rows[j].Count })
}

// Rollup builds DashboardData from pre-counted cells, e.g. the rows of a
// GROUP BY type, state query. Types and states keep first-seen order on ties.
func Rollup(cells []models.TypeStateCount) *models.DashboardData {
	data := &models.DashboardData{StateCounts: make(map[string][]models.StateCount)}

	typeTotals := make(map[string]int)
	allStates := make(map[string]int)
	skipped := make(map[string]bool)
	var typeOrder, stateOrder []string

	for _, c := range cells {
		if c.Count <= 0 || c.Type == "" || c.State == "" {
			continue
		}
		if _, ok := allStates[c.State]; !ok {
			stateOrder = append(stateOrder, c.State)
		}
		allStates[c.State] += c.Count
		data.Rows += c.Count

		if skipped[c.Type] {
			continue
		}
		if _, ok := typeTotals[c.Type]; !ok {
			if reservedType(c.Type) {
				skipped[c.Type] = true
				continue
			}
			typeOrder = append(typeOrder, c.Type)
		}
		typeTotals[c.Type] += c.Count
		data.StateCounts[c.Type] = append(data.StateCounts[c.Type], models.StateCount{Name: c.State, Count: c.Count})
	}

	for _, t := range typeOrder {
		sortCounts(data.StateCounts[t])
		data.TypeCounts = append(data.TypeCounts, models.StateCount{Name: t, Count: typeTotals[t]})
	}
	sortCounts(data.TypeCounts)

	all := make([]models.StateCount, 0, len(stateOrder))
	for _, s := range stateOrder {
		all = append(all, models.StateCount{Name: s, Count: allStates[s]})
	}
	sortCounts(all)
	data.StateCounts[AllCategory] = all
	return data
}
