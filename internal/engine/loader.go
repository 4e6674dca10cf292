package engine

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"
	"unsafe"

	"github.com/labstack/gommon/log"
)

// Expected CSV layout (header row required):
//
//	business_id,type,state,city,name
//
// name is last so it may contain commas.

func unsafeToString(b []byte) string {
	return *(*string)(unsafe.Pointer(&b))
}

// alignChunk moves [start,end) so both ends sit on line boundaries.
func alignChunk(content []byte, start, end int) (int, int) {
	if start > 0 {
		if i := bytes.IndexByte(content[start:], '\n'); i != -1 {
			start += i + 1
		} else {
			start = len(content)
		}
	}
	if end < len(content) {
		if i := bytes.IndexByte(content[end:], '\n'); i != -1 {
			end += i + 1
		} else {
			end = len(content)
		}
	}
	return start, end
}

type localDict struct {
	ids  map[string]int32
	list []string
}

func newLocalDict() *localDict { return &localDict{ids: make(map[string]int32)} }

func (d *localDict) id(field []byte) int32 {
	if id, ok := d.ids[unsafeToString(field)]; ok {
		return id
	}
	id := int32(len(d.list))
	str := string(field) // Allocate string for dict
	d.list = append(d.list, str)
	d.ids[str] = id
	return id
}

type workerOut struct {
	types, states *localDict
	typeIDs       []int32
	stateIDs      []int32
}

// LoadColumnar reads a business CSV file into a ColumnStore.
func LoadColumnar(path string) (*ColumnStore, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read business file: %w", err)
	}
	return ParseColumnar(content, runtime.NumCPU()), nil
}

// ParseColumnar parses CSV bytes using numWorkers goroutines.
func ParseColumnar(content []byte, numWorkers int) *ColumnStore {
	start := time.Now()

	// A. Skip header row
	if idx := bytes.IndexByte(content, '\n'); idx != -1 {
		content = content[idx+1:]
	} else {
		content = nil
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	// B. Parallel Parsing
	chunkSize := len(content) / numWorkers
	if chunkSize == 0 {
		numWorkers, chunkSize = 1, len(content)
	}
	outs := make([]*workerOut, numWorkers)
	sep := []byte{','}

	var parseWg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		s, e := i*chunkSize, (i+1)*chunkSize
		if i == numWorkers-1 {
			e = len(content)
		}
		parseWg.Add(1)
		go func(idx, s, e int) {
			defer parseWg.Done()
			w := &workerOut{types: newLocalDict(), states: newLocalDict()}
			outs[idx] = w

			s, e = alignChunk(content, s, e)
			if s >= e {
				return
			}
			chunk := content[s:e]
			for pos := 0; pos < len(chunk); {
				nextPos := len(chunk)
				if i := bytes.IndexByte(chunk[pos:], '\n'); i != -1 {
					nextPos = pos + i
				}
				line := bytes.TrimRight(chunk[pos:nextPos], "\r")
				pos = nextPos + 1
				if len(line) == 0 {
					continue
				}

				var typ, state []byte
				var rest = line
				var found bool

				// 0: Business ID (SKIP)
				if _, rest, found = bytes.Cut(rest, sep); !found {
					continue
				}
				// 1: Type (KEEP)
				if typ, rest, found = bytes.Cut(rest, sep); !found {
					continue
				}
				// 2: State (KEEP)
				state, _, _ = bytes.Cut(rest, sep)
				typ, state = bytes.TrimSpace(typ), bytes.TrimSpace(state)
				if len(typ) == 0 || len(state) == 0 {
					continue
				}

				w.typeIDs = append(w.typeIDs, w.types.id(typ))
				w.stateIDs = append(w.stateIDs, w.states.id(state))
			}
		}(i, s, e)
	}
	parseWg.Wait()

	// C. Allocate Store ONCE
	totalRows := 0
	offsets := make([]int, numWorkers)
	for i, w := range outs {
		offsets[i] = totalRows
		totalRows += len(w.stateIDs)
	}
	store := &ColumnStore{
		TypeIDs:  make([]int32, totalRows),
		StateIDs: make([]int32, totalRows),
	}

	// D. Merge Dictionaries (Parallel)
	mergeDict := func(getDict func(*workerOut) *localDict, getIDs func(*workerOut) []int32, globalDict *[]string, globalIDs []int32) {
		gMap := make(map[string]int32)
		*globalDict = make([]string, 0, 64)
		for w, out := range outs {
			local := getDict(out)
			remap := make([]int32, len(local.list))
			for lid, s := range local.list {
				gid, exists := gMap[s]
				if !exists {
					gid = int32(len(*globalDict))
					*globalDict = append(*globalDict, s)
					gMap[s] = gid
				}
				remap[lid] = gid
			}
			ids := getIDs(out)
			dest := globalIDs[offsets[w] : offsets[w]+len(ids)]
			for k, id := range ids {
				dest[k] = remap[id]
			}
		}
	}

	var dictWg sync.WaitGroup
	dictWg.Add(2)
	go func() {
		defer dictWg.Done()
		mergeDict(func(o *workerOut) *localDict { return o.types }, func(o *workerOut) []int32 { return o.typeIDs }, &store.TypeDict, store.TypeIDs)
	}()
	go func() {
		defer dictWg.Done()
		mergeDict(func(o *workerOut) *localDict { return o.states }, func(o *workerOut) []int32 { return o.stateIDs }, &store.StateDict, store.StateIDs)
	}()
	dictWg.Wait()

	log.Infof("Load Complete. Rows: %d. Time: %v", totalRows, time.Since(start))
	return store
}
