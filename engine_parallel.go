package lattice

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/jward/lattice/internal/javasrc"
	"github.com/jward/lattice/internal/store"
)

// workItem holds everything an extraction worker needs for one file.
type workItem struct {
	path    string
	fileID  int64
	content []byte
	batch   *store.BatchedStore
	pkg     string

	// Declaration hash of the previous version, "" for a new file.
	oldDeclHash string
	isNew       bool
}

// IndexFilesParallel indexes files using a three-phase parallel pipeline:
//
//	Phase A (serial):   Hash check, delete old data, prepare file records.
//	Phase B (parallel): Parse and extract via worker pool into per-file batches.
//	Phase C (serial):   Drop duplicate classes, commit batches to SQLite.
func (e *Engine) IndexFilesParallel(ctx context.Context, paths []string) error {
	// ---- Phase A: Serial file preparation ----
	var items []workItem
	var errs []error
	for _, path := range paths {
		item, skip, err := e.prepareFile(ctx, path)
		if err != nil {
			errs = append(errs, fmt.Errorf("prepare %s: %w", path, err))
			continue
		}
		if skip {
			continue
		}
		items = append(items, item)
	}

	if len(items) > 0 {
		errs = append(errs, e.extractAndCommit(ctx, items)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("parallel indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

func (e *Engine) extractAndCommit(ctx context.Context, items []workItem) []error {
	// ---- Phase B: Parallel extraction ----
	numWorkers := defaultWorkers(e.opts.workers, len(items))

	workCh := make(chan int, len(items))
	for i := range items {
		workCh <- i
	}
	close(workCh)

	extractErrs := make([]error, len(items))
	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Each item owns its batch; workers share nothing else.
			for i := range workCh {
				extractErrs[i] = e.extractFile(ctx, &items[i])
			}
		}()
	}
	wg.Wait()

	// ---- Phase C: Serial commit ----
	// Input order, so the first path declaring a class keeps it.
	var errs []error
	for i := range items {
		item := &items[i]
		if extractErrs[i] != nil {
			errs = append(errs, fmt.Errorf("extract %s: %w", item.path, extractErrs[i]))
			if err := e.discardFile(item); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if err := e.commitFile(item); err != nil {
			errs = append(errs, fmt.Errorf("commit %s: %w", item.path, err))
		}
	}
	return errs
}

// prepareFile does Phase A work for a single file: hash check, cleanup, file record.
// Returns (item, skip, error). skip=true means the file is unchanged or not Java.
func (e *Engine) prepareFile(ctx context.Context, path string) (workItem, bool, error) {
	if !javasrc.IsSourceFile(path) {
		return workItem{}, true, nil
	}
	if err := ctx.Err(); err != nil {
		return workItem{}, false, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return workItem{}, false, fmt.Errorf("read file: %w", err)
	}
	hash := fileHash(content)

	existing, err := e.store.FileByPath(path)
	if err != nil {
		return workItem{}, false, fmt.Errorf("lookup file: %w", err)
	}
	if existing != nil && existing.Hash == hash {
		return workItem{}, true, nil // unchanged
	}

	item := workItem{path: path, content: content, isNew: existing == nil}
	if existing != nil {
		item.oldDeclHash = existing.DeclHash
		if err := e.store.DeleteFileData(existing.ID); err != nil {
			return workItem{}, false, fmt.Errorf("delete old data: %w", err)
		}
	}

	item.fileID, err = e.store.InsertFile(&store.File{
		Path:        path,
		Hash:        hash,
		LastIndexed: time.Now(),
	})
	if err != nil {
		return workItem{}, false, err
	}
	item.batch = store.NewBatchedStore()
	return item, false, nil
}

// extractFile parses one file and buffers its declarations in the item's
// batch. Extract builds a fresh parser per call, so workers may run it
// concurrently.
func (e *Engine) extractFile(ctx context.Context, item *workItem) error {
	unit, err := javasrc.Extract(ctx, item.content)
	if err != nil {
		return err
	}
	item.pkg = unit.Package
	item.content = nil
	return writeUnit(item.batch, item.fileID, unit)
}

// writeUnit records a compilation unit through ds. Outer classes precede
// nested ones in unit.Types, so outer IDs are always known.
func writeUnit(ds store.DataStore, fileID int64, unit *javasrc.Unit) error {
	for _, imp := range unit.Imports {
		if _, err := ds.InsertImport(&store.Import{
			FileID:     fileID,
			Source:     imp.Path,
			IsStatic:   imp.Static,
			IsWildcard: imp.Wildcard,
		}); err != nil {
			return fmt.Errorf("insert import %s: %w", imp.Path, err)
		}
	}

	ids := make(map[string]int64, len(unit.Types))
	for _, td := range unit.Types {
		c := &store.Class{
			FileID:      fileID,
			Name:        td.Name,
			Kind:        td.Kind,
			IsInterface: td.IsInterface(),
			Modifiers:   td.Modifiers,
			StartLine:   td.Line,
		}
		if id, ok := ids[td.Outer]; ok && td.Outer != "" {
			c.OuterClassID = &id
		}
		classID, err := ds.InsertClass(c)
		if err != nil {
			return fmt.Errorf("insert class %s: %w", td.Name, err)
		}
		if _, dup := ids[td.Name]; !dup {
			ids[td.Name] = classID
		}

		clauses := [...]struct {
			rel   string
			exprs []string
		}{
			{store.RelExtends, td.Extends},
			{store.RelImplements, td.Implements},
		}
		for _, cl := range clauses {
			for i, expr := range cl.exprs {
				if _, err := ds.InsertSupertype(&store.Supertype{
					ClassID:  classID,
					Relation: cl.rel,
					Ordinal:  i,
					TypeExpr: expr,
				}); err != nil {
					return fmt.Errorf("insert supertype %s of %s: %w", expr, td.Name, err)
				}
			}
		}
	}
	return nil
}

// commitFile does Phase C work for one extracted file.
func (e *Engine) commitFile(item *workItem) error {
	declHash := store.DeclarationHash(item.batch.Classes, item.batch.Supertypes)

	batch, err := e.dropDuplicates(item)
	if err != nil {
		return err
	}
	if err := e.store.CommitBatch(batch); err != nil {
		return err
	}
	if err := e.store.SetFileDeclarations(item.fileID, item.pkg, declHash); err != nil {
		return err
	}
	if item.isNew || declHash != item.oldDeclHash {
		return e.markFullResolve()
	}
	return nil
}

// discardFile removes the record of a file that failed extraction, so the
// next run retries it instead of seeing an unchanged hash.
func (e *Engine) discardFile(item *workItem) error {
	if err := e.store.DeleteFileData(item.fileID); err != nil {
		return fmt.Errorf("discard %s: %w", item.path, err)
	}
	if item.isNew {
		return nil
	}
	return e.markFullResolve()
}

// dropDuplicates returns the item's batch without classes whose name is
// already indexed or repeats within the file. The first declaration wins.
// Supertypes of dropped classes go with them; nested classes of a dropped
// outer class are kept as top-level entries.
func (e *Engine) dropDuplicates(item *workItem) (*store.BatchedStore, error) {
	out := &store.BatchedStore{Imports: item.batch.Imports}
	dropped := make(map[int64]bool)
	seen := make(map[string]bool, len(item.batch.Classes))

	for _, c := range item.batch.Classes {
		existing, err := e.store.ClassByName(c.Name)
		if err != nil {
			return nil, err
		}
		if existing != nil || seen[c.Name] {
			e.logger.Warn("duplicate class declaration ignored", "class", c.Name, "path", item.path, "line", c.StartLine)
			dropped[c.ID] = true
			continue
		}
		seen[c.Name] = true
		if c.OuterClassID != nil && dropped[*c.OuterClassID] {
			c.OuterClassID = nil
		}
		out.Classes = append(out.Classes, c)
	}
	for _, st := range item.batch.Supertypes {
		if !dropped[st.ClassID] {
			out.Supertypes = append(out.Supertypes, st)
		}
	}
	return out, nil
}
