package engine

import (
	"os"

	"github.com/coocood/badger"
	"github.com/ngaut/log"
	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/cloudkv/config"
	"github.com/pingcap-incubator/cloudkv/kv/util/codec"
)

// Column families. The write family holds committed versions keyed by
// (key, commitTS); the lock family holds at most one current lock per key;
// the extra family holds transaction status records for rollbacks and
// post-hoc lock cleanups.
const (
	CfWrite string = "write"
	CfLock  string = "lock"
	CfExtra string = "extra"
)

var CFs = [3]string{CfWrite, CfLock, CfExtra}

// KeyWithCF namespaces a key into its column family.
func KeyWithCF(cf string, key []byte) []byte {
	return append([]byte(cf+"_"), key...)
}

// Engine is a badger database organized into column families, with native
// multi-versioning on the write family.
type Engine struct {
	db   *badger.DB
	path string
}

// Open creates or opens the engine at conf.DBPath.
func Open(conf *config.Engine) (*Engine, error) {
	opts := badger.DefaultOptions
	opts.Dir = conf.DBPath
	opts.ValueDir = conf.DBPath
	opts.ValueThreshold = conf.ValueThreshold
	opts.MaxTableSize = conf.MaxTableSize
	opts.NumMemtables = conf.NumMemTables
	opts.NumLevelZeroTables = conf.NumL0Tables
	opts.NumLevelZeroTablesStall = conf.NumL0TablesStall
	opts.ValueLogFileSize = conf.VlogFileSize
	opts.SyncWrites = conf.SyncWrite
	opts.NumCompactors = conf.NumCompactors
	if err := os.MkdirAll(opts.Dir, os.ModePerm); err != nil {
		return nil, errors.Trace(err)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Trace(err)
	}
	log.Infof("engine opened at %s", conf.DBPath)
	return &Engine{db: db, path: conf.DBPath}, nil
}

// NewSnapshot returns a point-in-time view of the engine. The caller owns it
// and must Discard it; it may be shared freely between readers meanwhile.
func (e *Engine) NewSnapshot() *Snapshot {
	return &Snapshot{txn: e.db.NewTransaction(false)}
}

// Write applies a batch atomically.
func (e *Engine) Write(wb *WriteBatch) error {
	if wb.Len() == 0 {
		return nil
	}
	err := e.db.Update(func(txn *badger.Txn) error {
		for _, entry := range wb.entries {
			key := materializeKey(entry)
			if entry.delete {
				if err := txn.Delete(key); err != nil {
					return err
				}
				continue
			}
			err := txn.SetEntry(&badger.Entry{
				Key:      key,
				Value:    entry.value,
				UserMeta: entry.meta,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return errors.Trace(err)
}

func (e *Engine) Close() error {
	log.Infof("closing engine at %s", e.path)
	return errors.Trace(e.db.Close())
}

// materializeKey maps a batch entry to its stored form. Write-family entries
// carry the commit version as a descending key suffix so that a seek with a
// timestamp ceiling lands on the right version.
func materializeKey(entry writeEntry) []byte {
	if entry.cf == CfWrite {
		return KeyWithCF(entry.cf, codec.EncodeKey(entry.key, entry.meta.CommitTS()))
	}
	return KeyWithCF(entry.cf, entry.key)
}
