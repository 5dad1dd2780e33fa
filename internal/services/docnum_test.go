package services

import (
	"regexp"
	"strings"
	"testing"
)

func TestNewDocNo(t *testing.T) {
	re := regexp.MustCompile(`^PO-\d{17}$`)

	no := NewDocNo("PO")
	if !re.MatchString(no) {
		t.Errorf("номер %q не соответствует формату PREFIX-yyyyMMddHHmmssfff", no)
	}
}

func TestNewDocNoPrefixes(t *testing.T) {
	for _, prefix := range []string{"PO", "GR", "GRT", "QT", "SO", "INV", "RCPT"} {
		no := NewDocNo(prefix)
		if !strings.HasPrefix(no, prefix+"-") {
			t.Errorf("номер %q должен начинаться с %s-", no, prefix)
		}
	}
}

func TestNewInspectionSvcNo(t *testing.T) {
	re := regexp.MustCompile(`^SVC-INSP-\d{17}-\d+-[0-9a-f]{6}$`)

	a := NewInspectionSvcNo(0)
	b := NewInspectionSvcNo(1)
	if !re.MatchString(a) {
		t.Errorf("номер %q не соответствует формату", a)
	}
	if a == b {
		t.Errorf("номера нарядов одной приёмки должны различаться: %q", a)
	}
}
