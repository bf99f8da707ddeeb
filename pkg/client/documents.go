package client

import (
	"bytes"
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/goliatone/go-customfields/pkg/values"
)

// ExportValues downloads the spreadsheet of every value stored against a
// schema. Failures still arrive as envelopes and are decoded as usual.
func (c *Client) ExportValues(ctx context.Context, schemaID string) ([]byte, error) {
	const op = "export values"
	resp, err := c.request(ctx).Get("/value/export/" + escape(schemaID))
	if err != nil {
		c.logger.Warn("custom field api unreachable", zap.String("op", op), zap.Error(err))
		return nil, &TransportError{Op: op, Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, decode(op, resp, nil)
	}
	return resp.Body(), nil
}

// ImportValues uploads a spreadsheet previously produced by ExportValues.
func (c *Client) ImportValues(ctx context.Context, schemaID string, workbook []byte) (values.ImportReport, error) {
	const op = "import values"
	var report values.ImportReport
	resp, err := c.request(ctx).
		SetFileReader("file", schemaID+".xlsx", bytes.NewReader(workbook)).
		Post("/value/import/" + escape(schemaID))
	if err != nil {
		c.logger.Warn("custom field api unreachable", zap.String("op", op), zap.Error(err))
		return report, &TransportError{Op: op, Err: err}
	}
	err = decode(op, resp, &report)
	return report, err
}
