// Package storage provides SQLite access to manifold census catalogs.
//
// A catalog is a single SQLite file holding one relation per census. The
// storage layer manages:
//   - Driver selection (pure Go or cgo)
//   - Read-only handles used by census tables
//   - The catalog schema and its migrations
//   - Provisioning new catalogs
//
// # Catalog Schema
//
// Every relation has:
//   - id: 1-based gapless ordinal
//   - name: manifold name (indexed, not enforced unique)
//   - triangulation: encoded blob, see package codec
//   - hash: isometry signature
//   - volume, cusps, tets, betti: filter columns
//
// Cusped relations add perm (packed cusp permutation), closed relations add
// m and l (Dehn filling), link relations add perm and DT.
//
// Standard relations:
//   - orientable_cusped_view, nonorientable_cusped_view
//   - orientable_closed_view, nonorientable_closed_view
//   - link_exteriors_view, census_knots_view
//   - HT_links_view (usually shipped in a separate, larger file)
//
// # Reading
//
//	db, err := storage.OpenReadOnly(path)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
// Handles are opened with PRAGMA query_only and a single connection.
// A missing file fails with ErrCatalogMissing instead of creating an empty
// database.
//
// # Provisioning
//
//	w, err := storage.Create(ctx, "manifolds.sqlite")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Close()
//
//	tx, _ := w.BeginTx(ctx)
//	defer tx.Rollback()
//
//	rel := storage.Relation{Name: storage.OrientableCuspedRelation, Shape: storage.CuspedShape}
//	for _, row := range rows {
//	    if err := tx.Insert(ctx, rel, row); err != nil {
//	        return err
//	    }
//	}
//	return tx.Commit()
//
// # Build Tags
//
// Pure Go Build (default, purego tag):
//
//   - Uses modernc.org/sqlite driver
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build -tags "purego"
//
// CGO Build (sqlite_cgo tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Requires C compiler
//
//     CGO_ENABLED=1 go build -tags "sqlite_cgo"
package storage
