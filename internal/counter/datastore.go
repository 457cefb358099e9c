package counter

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/datastore"
)

var _ Counter = (*DatastoreCounter)(nil)

// DatastoreCounter has no server-side increment to use, so Up runs
// get-add-put inside a transaction and lets Datastore retry on contention.
// Properties other than the counter are preserved.
type DatastoreCounter struct {
	client    *datastore.Client
	key       *datastore.Key
	valueAttr string
}

func NewDatastoreCounter(client *datastore.Client, kind, name, namespace, valueAttr string) *DatastoreCounter {
	key := datastore.NameKey(kind, name, nil)
	key.Namespace = namespace
	return &DatastoreCounter{client: client, key: key, valueAttr: valueAttr}
}

func (c *DatastoreCounter) Up(ctx context.Context) (int64, error) {
	var n int64
	_, err := c.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		// may run more than once
		var props datastore.PropertyList
		if err := tx.Get(c.key, &props); err != nil && !errors.Is(err, datastore.ErrNoSuchEntity) {
			return err
		}

		next, err := incrementProperty(&props, c.valueAttr)
		if err != nil {
			return err
		}
		if _, err := tx.Put(c.key, &props); err != nil {
			return err
		}
		n = next
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("RunInTransaction: key=%s, %w", c.key, err)
	}
	return n, nil
}

// incrementProperty adds one to the named int property, appending it at 1 when absent.
func incrementProperty(props *datastore.PropertyList, name string) (int64, error) {
	for i, p := range *props {
		if p.Name != name {
			continue
		}
		v, ok := p.Value.(int64)
		if !ok {
			return 0, fmt.Errorf("%w: property %s is %T", ErrMalformedResponse, name, p.Value)
		}
		(*props)[i].Value = v + 1
		return v + 1, nil
	}
	*props = append(*props, datastore.Property{Name: name, Value: int64(1)})
	return 1, nil
}
