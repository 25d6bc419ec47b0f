// Package huawei adapts Huawei Cloud DNS's API to the dns.Provider
// interface. Grounded on the teacher's go.mod, which already vendors
// github.com/huaweicloud/huaweicloud-sdk-go-v3; no pack repo calls it for
// real, so the client construction and request shapes here follow the
// SDK's documented conventions (see DESIGN.md).
package huawei

import (
	"context"
	"fmt"
	"sync"

	hwauth "github.com/huaweicloud/huaweicloud-sdk-go-v3/core/auth/basic"
	hwdns "github.com/huaweicloud/huaweicloud-sdk-go-v3/services/dns/v2"
	hwmodel "github.com/huaweicloud/huaweicloud-sdk-go-v3/services/dns/v2/model"
	hwregion "github.com/huaweicloud/huaweicloud-sdk-go-v3/services/dns/v2/region"

	"github.com/xyqyear/mcadmin/internal/dns"
)

// Client implements dns.Provider against Huawei Cloud DNS. It does not
// implement dns.BatchUpdater — a record set update still requires its own
// UpdateRecordSet call per id, but not a remove+add round trip, so the
// reconciler's remove-then-add fallback is used for updates (a batch
// endpoint does not exist in this API).
type Client struct {
	sdk    *hwdns.DnsClient
	domain string

	mu     sync.Mutex
	zoneID string
}

// New builds a Client authenticated with an access key/secret key pair
// against the given region (e.g. "cn-east-3").
func New(accessKey, secretKey, region, domain string) (*Client, error) {
	auth, err := hwauth.NewCredentialsBuilder().
		WithAk(accessKey).
		WithSk(secretKey).
		SafeBuild()
	if err != nil {
		return nil, fmt.Errorf("huawei: build credentials: %w", err)
	}

	regionValue, err := hwregion.SafeValueOf(region)
	if err != nil {
		return nil, fmt.Errorf("huawei: unknown region %q: %w", region, err)
	}

	hcClient, err := hwdns.DnsClientBuilder().
		WithRegion(regionValue).
		WithCredential(auth).
		SafeBuild()
	if err != nil {
		return nil, fmt.Errorf("huawei: build client: %w", err)
	}

	return &Client{sdk: hwdns.NewDnsClient(hcClient), domain: domain}, nil
}

func (c *Client) GetDomain() string { return c.domain }

// resolveZoneID looks up (and caches) the public zone id for c.domain.
func (c *Client) resolveZoneID(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.zoneID != "" {
		return c.zoneID, nil
	}

	name := c.domain + "."
	req := &hwmodel.ListPublicZonesRequest{Name: &name}
	resp, err := c.sdk.ListPublicZones(req)
	if err != nil {
		return "", fmt.Errorf("huawei: ListPublicZones: %w", err)
	}
	if resp.Zones == nil || len(*resp.Zones) == 0 {
		return "", fmt.Errorf("huawei: no public zone found for domain %q", c.domain)
	}
	zone := (*resp.Zones)[0]
	if zone.Id == nil {
		return "", fmt.Errorf("huawei: zone for domain %q has no id", c.domain)
	}
	c.zoneID = *zone.Id
	return c.zoneID, nil
}

// ListRelevantRecords lists every record set under managedSubDomain.
func (c *Client) ListRelevantRecords(ctx context.Context, managedSubDomain string) ([]dns.Record, error) {
	zoneID, err := c.resolveZoneID(ctx)
	if err != nil {
		return nil, err
	}

	nameFilter := managedSubDomain + "." + c.domain + "."
	req := &hwmodel.ListRecordSetsByZoneRequest{ZoneId: zoneID, Name: &nameFilter}
	resp, err := c.sdk.ListRecordSetsByZone(req)
	if err != nil {
		return nil, fmt.Errorf("huawei: ListRecordSetsByZone: %w", err)
	}
	if resp.Recordsets == nil {
		return nil, nil
	}

	var out []dns.Record
	for _, rs := range *resp.Recordsets {
		if rs.Records == nil || len(*rs.Records) == 0 {
			continue
		}
		var id, name, rtype string
		var ttl int
		if rs.Id != nil {
			id = *rs.Id
		}
		if rs.Name != nil {
			name = *rs.Name
		}
		if rs.Type != nil {
			rtype = *rs.Type
		}
		if rs.Ttl != nil {
			ttl = int(*rs.Ttl)
		}
		out = append(out, dns.Record{
			ID:         id,
			SubDomain:  stripDomainSuffix(name, c.domain),
			RecordType: dns.RecordType(rtype),
			Value:      (*rs.Records)[0],
			TTL:        ttl,
		})
	}
	return out, nil
}

func stripDomainSuffix(fqdn, domain string) string {
	suffix := "." + domain + "."
	if len(fqdn) > len(suffix) && fqdn[len(fqdn)-len(suffix):] == suffix {
		return fqdn[:len(fqdn)-len(suffix)]
	}
	return fqdn
}

// AddRecords creates a record set per record.
func (c *Client) AddRecords(ctx context.Context, records []dns.Record) error {
	zoneID, err := c.resolveZoneID(ctx)
	if err != nil {
		return err
	}
	for _, rec := range records {
		name := rec.SubDomain + "." + c.domain + "."
		rtype := string(rec.RecordType)
		ttl := int32(rec.TTL)
		values := []string{rec.Value}
		req := &hwmodel.CreateRecordSetRequest{
			ZoneId: zoneID,
			Body: &hwmodel.CreateRecordSetRequestBody{
				Name:    name,
				Type:    rtype,
				Ttl:     &ttl,
				Records: &values,
			},
		}
		if _, err := c.sdk.CreateRecordSet(req); err != nil {
			return fmt.Errorf("huawei: CreateRecordSet %s: %w", rec.SubDomain, err)
		}
	}
	return nil
}

// RemoveRecords deletes record sets by id.
func (c *Client) RemoveRecords(ctx context.Context, ids []string) error {
	zoneID, err := c.resolveZoneID(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		req := &hwmodel.DeleteRecordSetRequest{ZoneId: zoneID, RecordsetId: id}
		if _, err := c.sdk.DeleteRecordSet(req); err != nil {
			return fmt.Errorf("huawei: DeleteRecordSet %s: %w", id, err)
		}
	}
	return nil
}
