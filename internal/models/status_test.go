package models

import "testing"

func TestVehicleTransitions(t *testing.T) {
	cases := []struct {
		from    VehicleStatus
		to      VehicleStatus
		allowed bool
	}{
		{VehicleStatusUnderInspection, VehicleStatusInStock, true},
		{VehicleStatusUnderInspection, VehicleStatusReturned, true},
		{VehicleStatusUnderInspection, VehicleStatusSold, false},
		{VehicleStatusInStock, VehicleStatusReserved, true},
		{VehicleStatusInStock, VehicleStatusAllocated, true},
		{VehicleStatusInStock, VehicleStatusPendingPayment, false},
		{VehicleStatusReserved, VehicleStatusAllocated, true},
		{VehicleStatusReserved, VehicleStatusInStock, true},
		{VehicleStatusReserved, VehicleStatusSold, false},
		{VehicleStatusAllocated, VehicleStatusPendingPayment, true},
		{VehicleStatusAllocated, VehicleStatusInStock, true},
		{VehicleStatusAllocated, VehicleStatusReserved, false},
		{VehicleStatusPendingPayment, VehicleStatusSold, true},
		{VehicleStatusPendingPayment, VehicleStatusInStock, false},
		{VehicleStatusSold, VehicleStatusInStock, false},
		{VehicleStatusReturned, VehicleStatusUnderInspection, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: получили %v, ожидали %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestVehicleTerminalStatuses(t *testing.T) {
	terminal := []VehicleStatus{VehicleStatusSold, VehicleStatusReturned}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("статус %s должен быть терминальным", s)
		}
	}

	active := []VehicleStatus{
		VehicleStatusUnderInspection,
		VehicleStatusInStock,
		VehicleStatusReserved,
		VehicleStatusAllocated,
		VehicleStatusPendingPayment,
	}
	for _, s := range active {
		if s.IsTerminal() {
			t.Errorf("статус %s не должен быть терминальным", s)
		}
	}
}

func TestPurchaseOrderTransitions(t *testing.T) {
	cases := []struct {
		from    PurchaseOrderStatus
		to      PurchaseOrderStatus
		allowed bool
	}{
		{PurchaseOrderStatusPending, PurchaseOrderStatusReceiving, true},
		{PurchaseOrderStatusPending, PurchaseOrderStatusConfirmed, false},
		{PurchaseOrderStatusReceiving, PurchaseOrderStatusConfirmed, true},
		{PurchaseOrderStatusReceiving, PurchaseOrderStatusPending, false},
		{PurchaseOrderStatusConfirmed, PurchaseOrderStatusClosed, true},
		{PurchaseOrderStatusClosed, PurchaseOrderStatusPending, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: получили %v, ожидали %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestServiceOrderTransitions(t *testing.T) {
	cases := []struct {
		from    ServiceOrderStatus
		to      ServiceOrderStatus
		allowed bool
	}{
		{ServiceOrderStatusPlanned, ServiceOrderStatusInProgress, true},
		{ServiceOrderStatusPlanned, ServiceOrderStatusCancelled, true},
		{ServiceOrderStatusPlanned, ServiceOrderStatusDone, false},
		{ServiceOrderStatusInProgress, ServiceOrderStatusDone, true},
		{ServiceOrderStatusInProgress, ServiceOrderStatusCancelled, true},
		{ServiceOrderStatusDone, ServiceOrderStatusInProgress, false},
		{ServiceOrderStatusCancelled, ServiceOrderStatusPlanned, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: получили %v, ожидали %v", tc.from, tc.to, got, tc.allowed)
		}
	}

	if !ServiceOrderStatusDone.IsTerminal() || !ServiceOrderStatusCancelled.IsTerminal() {
		t.Error("DONE и CANCELLED должны быть терминальными")
	}
}

func TestSalesOrderTransitions(t *testing.T) {
	cases := []struct {
		from    SalesOrderStatus
		to      SalesOrderStatus
		allowed bool
	}{
		{SalesOrderStatusDraft, SalesOrderStatusPendingPayment, true},
		{SalesOrderStatusDraft, SalesOrderStatusCompleted, false},
		{SalesOrderStatusPendingPayment, SalesOrderStatusCompleted, true},
		{SalesOrderStatusPendingPayment, SalesOrderStatusDraft, false},
		{SalesOrderStatusCompleted, SalesOrderStatusDraft, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: получили %v, ожидали %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestVehicleRequestTransitions(t *testing.T) {
	cases := []struct {
		from    VehicleRequestStatus
		to      VehicleRequestStatus
		allowed bool
	}{
		{VehicleRequestStatusNew, VehicleRequestStatusAssigned, true},
		{VehicleRequestStatusNew, VehicleRequestStatusPOCreated, true},
		{VehicleRequestStatusNew, VehicleRequestStatusCancelled, true},
		{VehicleRequestStatusNew, VehicleRequestStatusSOCreated, false},
		{VehicleRequestStatusPOCreated, VehicleRequestStatusAssigned, true},
		{VehicleRequestStatusAssigned, VehicleRequestStatusSOCreated, true},
		{VehicleRequestStatusAssigned, VehicleRequestStatusPOCreated, false},
		{VehicleRequestStatusSOCreated, VehicleRequestStatusCancelled, false},
		{VehicleRequestStatusCancelled, VehicleRequestStatusNew, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: получили %v, ожидали %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}
