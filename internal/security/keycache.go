package security

import "sync"

// TenantKeyCache keeps the secondary key derived at login, one per tenant.
type TenantKeyCache struct {
	keys sync.Map
}

func NewTenantKeyCache() *TenantKeyCache {
	return &TenantKeyCache{}
}

func (c *TenantKeyCache) Put(tenantID string, key []byte) {
	c.keys.Store(tenantID, key)
}

func (c *TenantKeyCache) Get(tenantID string) ([]byte, bool) {
	val, ok := c.keys.Load(tenantID)
	if !ok {
		return nil, false
	}
	return val.([]byte), true
}

func (c *TenantKeyCache) Remove(tenantID string) {
	c.keys.Delete(tenantID)
}
