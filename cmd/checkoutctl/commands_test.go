package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"farmstand/internal/domain"
	checkoutsvc "farmstand/internal/service/checkout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintAttempts_Table(t *testing.T) {
	var buf bytes.Buffer
	attempts := []domain.CheckoutAttempt{{
		Reference:       "ref-1",
		BuyerID:         "b1",
		Status:          domain.AttemptReconciliationNeeded,
		AmountMinor:     2250,
		AmountPaidMinor: 2250,
		FailureDetail:   "vendor v2: insert failed",
		UpdatedAt:       time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
	}}

	require.NoError(t, printAttempts(&buf, attempts, false))

	out := buf.String()
	assert.Contains(t, out, "REFERENCE")
	assert.Contains(t, out, "ref-1")
	assert.Contains(t, out, "reconciliation_needed")
	assert.Contains(t, out, "2026-03-01 09:30")
}

func TestPrintAttempts_JSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printAttempts(&buf, nil, true))

	var decoded []domain.CheckoutAttempt
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Empty(t, decoded)
	assert.Equal(t, "[]", strings.TrimSpace(buf.String()))
}

func TestPrintOrdersAndVerification(t *testing.T) {
	var buf bytes.Buffer
	printVerification(&buf, checkoutsvc.VerifyOutcome{Reference: "ref-1", Status: "success", Succeeded: true, AmountPaid: 2250})
	printOrders(&buf, "ref-1", []domain.Order{{ID: "o1", VendorName: "Green Acres Farm", TotalMinor: 1000, Status: domain.OrderPending}})

	out := buf.String()
	assert.Contains(t, out, "succeeded=true amount_paid=2250")
	assert.Contains(t, out, "orders=1")
	assert.Contains(t, out, "vendor=Green Acres Farm total=1000 status=pending")
}

func TestAttemptsCmd_RejectsUnknownStatus(t *testing.T) {
	cmd := attemptsCmd()
	cmd.SetArgs([]string{"--status", "bogus"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown status")
}
