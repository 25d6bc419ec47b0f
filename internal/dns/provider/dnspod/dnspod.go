// Package dnspod adapts Tencent Cloud DNSPod's API to the dns.Provider
// interface. Grounded on the teacher's go.mod, which already vendors
// github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/dnspod; no pack
// repo calls it for real, so the client construction and request shapes
// here follow the SDK's documented conventions (see DESIGN.md).
package dnspod

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/errors"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	dnspodv3 "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/dnspod/v20210323"

	"github.com/xyqyear/mcadmin/internal/dns"
)

// Client implements dns.Provider and dns.BatchUpdater against DNSPod.
type Client struct {
	sdk    *dnspodv3.Client
	domain string
}

// New builds a Client authenticated with a Tencent Cloud secret id/key pair.
func New(secretID, secretKey, domain string) (*Client, error) {
	credential := common.NewCredential(secretID, secretKey)
	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = "dnspod.tencentcloudapi.com"

	sdk, err := dnspodv3.NewClient(credential, "", cpf)
	if err != nil {
		return nil, fmt.Errorf("dnspod: build client: %w", err)
	}
	return &Client{sdk: sdk, domain: domain}, nil
}

func (c *Client) GetDomain() string { return c.domain }

// ListRelevantRecords lists the records under managedSubDomain with a single
// DescribeRecordList call filtered by subdomain; only the one page that call
// returns is read, further pages are not fetched.
func (c *Client) ListRelevantRecords(ctx context.Context, managedSubDomain string) ([]dns.Record, error) {
	req := dnspodv3.NewDescribeRecordListRequest()
	req.Domain = common.StringPtr(c.domain)
	req.Subdomain = common.StringPtr(managedSubDomain)

	resp, err := c.sdk.DescribeRecordList(req)
	if err != nil {
		var sdkErr *errors.TencentCloudSDKError
		if asTencentErr(err, &sdkErr) && sdkErr.Code == "ResourceNotFound.NoDataOfRecord" {
			return nil, nil
		}
		return nil, fmt.Errorf("dnspod: DescribeRecordList: %w", err)
	}
	if resp.Response == nil {
		return nil, nil
	}

	out := make([]dns.Record, 0, len(resp.Response.RecordList))
	for _, rec := range resp.Response.RecordList {
		out = append(out, dns.Record{
			ID:         strconv.FormatUint(derefU64(rec.RecordId), 10),
			SubDomain:  derefStr(rec.Name),
			RecordType: dns.RecordType(derefStr(rec.Type)),
			Value:      derefStr(rec.Value),
			TTL:        int(derefU64(rec.TTL)),
		})
	}
	return out, nil
}

// AddRecords creates each record with the default ("默认") line.
func (c *Client) AddRecords(ctx context.Context, records []dns.Record) error {
	for _, rec := range records {
		req := dnspodv3.NewCreateRecordRequest()
		req.Domain = common.StringPtr(c.domain)
		req.SubDomain = common.StringPtr(rec.SubDomain)
		req.RecordType = common.StringPtr(string(rec.RecordType))
		req.RecordLine = common.StringPtr("默认")
		req.Value = common.StringPtr(rec.Value)
		req.TTL = common.Uint64Ptr(uint64(rec.TTL))

		if _, err := c.sdk.CreateRecord(req); err != nil {
			return fmt.Errorf("dnspod: CreateRecord %s: %w", rec.SubDomain, err)
		}
	}
	return nil
}

// RemoveRecords deletes by record id.
func (c *Client) RemoveRecords(ctx context.Context, ids []string) error {
	for _, id := range ids {
		recordID, err := strconv.ParseUint(id, 10, 64)
		if err != nil {
			return fmt.Errorf("dnspod: invalid record id %q: %w", id, err)
		}
		req := dnspodv3.NewDeleteRecordRequest()
		req.Domain = common.StringPtr(c.domain)
		req.RecordId = common.Uint64Ptr(recordID)
		if _, err := c.sdk.DeleteRecord(req); err != nil {
			return fmt.Errorf("dnspod: DeleteRecord %s: %w", id, err)
		}
	}
	return nil
}

// UpdateRecordsBatch modifies each record in place via ModifyRecord,
// implementing dns.BatchUpdater: DNSPod's API supports per-record update
// without a remove+add round trip.
func (c *Client) UpdateRecordsBatch(ctx context.Context, records []dns.Record) error {
	for _, rec := range records {
		recordID, err := strconv.ParseUint(rec.ID, 10, 64)
		if err != nil {
			return fmt.Errorf("dnspod: invalid record id %q: %w", rec.ID, err)
		}
		req := dnspodv3.NewModifyRecordRequest()
		req.Domain = common.StringPtr(c.domain)
		req.RecordId = common.Uint64Ptr(recordID)
		req.SubDomain = common.StringPtr(rec.SubDomain)
		req.RecordType = common.StringPtr(string(rec.RecordType))
		req.RecordLine = common.StringPtr("默认")
		req.Value = common.StringPtr(rec.Value)
		req.TTL = common.Uint64Ptr(uint64(rec.TTL))

		if _, err := c.sdk.ModifyRecord(req); err != nil {
			return fmt.Errorf("dnspod: ModifyRecord %s: %w", rec.ID, err)
		}
	}
	return nil
}

func asTencentErr(err error, target **errors.TencentCloudSDKError) bool {
	e, ok := err.(*errors.TencentCloudSDKError)
	if ok {
		*target = e
	}
	return ok
}

func derefStr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func derefU64(p *uint64) uint64 {
	if p == nil {
		return 0
	}
	return *p
}
