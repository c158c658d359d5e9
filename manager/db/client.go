package db

import (
	"encoding/json"
	"errors"

	"github.com/jorenkoyen/go-logger"
	"github.com/jorenkoyen/go-logger/log"
	"github.com/jorenkoyen/swarmgate/manager/types"
	"go.etcd.io/bbolt"
)

var (
	BucketCertificates = []byte("certificates")

	ErrItemNotFound = errors.New("item not found")
)

// Client acts as the interface between to communicate with our database system.
type Client struct {
	logger *logger.Logger
	bolt   *bbolt.DB
}

// NewClient will create a new database client for handling operations.
func NewClient(path string) (*Client, error) {
	l := log.WithName("database")
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}

	l.Debugf("Successfully opened database at path=%s", path)
	return &Client{logger: l, bolt: db}, nil
}

// SaveCertificateRecord will persist the certificate record for its domain.
func (c *Client) SaveCertificateRecord(record *types.CertificateRecord) error {
	return c.bolt.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(BucketCertificates)
		if err != nil {
			return err
		}

		content, err := json.Marshal(record)
		if err != nil {
			return err
		}

		c.logger.Tracef("Saving certificate record for domain=%s (status=%s)", record.Domain, record.Status)
		return bucket.Put([]byte(record.Domain), content)
	})
}

// GetCertificateRecord will return the last known certificate record for the domain.
func (c *Client) GetCertificateRecord(domain string) (*types.CertificateRecord, error) {
	record := new(types.CertificateRecord)
	err := c.bolt.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(BucketCertificates)
		if bucket == nil {
			return ErrItemNotFound
		}

		content := bucket.Get([]byte(domain))
		if content == nil {
			return ErrItemNotFound
		}

		return json.Unmarshal(content, record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// GetAllCertificateRecords returns every certificate record known to the system.
func (c *Client) GetAllCertificateRecords() []types.CertificateRecord {
	records := make([]types.CertificateRecord, 0)
	_ = c.bolt.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(BucketCertificates)
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(_, content []byte) error {
			r := new(types.CertificateRecord)
			if err := json.Unmarshal(content, r); err == nil {
				records = append(records, *r)
			}
			return nil
		})
	})
	return records
}

// RemoveCertificateRecord will remove the record for the domain if it exists.
func (c *Client) RemoveCertificateRecord(domain string) error {
	return c.bolt.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(BucketCertificates)
		if bucket == nil {
			return nil
		}

		return bucket.Delete([]byte(domain))
	})
}

// Close will close the open connection to the database.
func (c *Client) Close() error {
	if c.bolt != nil {
		c.logger.Trace("Closing connection to database")
		return c.bolt.Close()
	}
	return nil
}
