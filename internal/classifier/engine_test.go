package classifier

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hogehogetakumi/edinet-value-screener/internal/model"
)

var testThresholds = NewThresholds(0.30, 0.10, 0.5)

func amt(v string) decimal.NullDecimal {
	if v == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

func record(period string, revenue, inventory, netIncome, operatingCF string) *model.FinancialRecord {
	t, err := time.Parse("2006-01-02", period)
	if err != nil {
		panic(err)
	}
	return &model.FinancialRecord{
		CompanyCode: "E02144",
		CompanyName: "テスト株式会社",
		PeriodEnd:   t,
		Revenue:     amt(revenue),
		Inventory:   amt(inventory),
		NetIncome:   amt(netIncome),
		OperatingCF: amt(operatingCF),
	}
}

func TestClassify_InventoryRed(t *testing.T) {
	// Revenue +10%, inventory +50%: the 40pt gap exceeds the 30pt red margin.
	prior := record("2023-03-31", "100", "100", "50", "60")
	current := record("2024-03-31", "110", "150", "50", "60")

	got := Classify(current, prior, testThresholds)
	if got.Inventory.Pending {
		t.Fatal("inventory category should classify")
	}
	if got.Inventory.Signal != model.SignalRed {
		t.Errorf("expected RED, got %s (%s)", got.Inventory.Signal, got.Inventory.Comment)
	}
	if !strings.Contains(got.Inventory.Comment, "red margin") {
		t.Errorf("comment should name the crossed threshold, got %q", got.Inventory.Comment)
	}
}

func TestClassify_InventoryYellowAndGreen(t *testing.T) {
	tests := []struct {
		name      string
		inventory string
		want      model.Signal
	}{
		{"gap 20pt is yellow", "130", model.SignalYellow},
		{"gap 5pt is green", "115", model.SignalGreen},
		{"inventory shrinking is green", "80", model.SignalGreen},
	}
	prior := record("2023-03-31", "100", "100", "", "")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current := record("2024-03-31", "110", tt.inventory, "", "")
			got := Classify(current, prior, testThresholds)
			if got.Inventory.Pending || got.Inventory.Signal != tt.want {
				t.Errorf("expected %s, got pending=%v signal=%s", tt.want, got.Inventory.Pending, got.Inventory.Signal)
			}
		})
	}
}

func TestClassify_AccrualsRed(t *testing.T) {
	// Profitable on paper, cash-negative: RED regardless of the prior period's values.
	prior := record("2023-03-31", "", "", "", "")
	current := record("2024-03-31", "", "", "500", "-50")

	got := Classify(current, prior, testThresholds)
	if got.Accruals.Pending || got.Accruals.Signal != model.SignalRed {
		t.Errorf("expected RED, got pending=%v signal=%s", got.Accruals.Pending, got.Accruals.Signal)
	}
}

func TestClassify_AccrualsYellow(t *testing.T) {
	// OCF 200 below half of net income 500.
	prior := record("2023-03-31", "", "", "", "")
	current := record("2024-03-31", "", "", "500", "200")

	got := Classify(current, prior, testThresholds)
	if got.Accruals.Pending || got.Accruals.Signal != model.SignalYellow {
		t.Errorf("expected YELLOW, got pending=%v signal=%s (%s)", got.Accruals.Pending, got.Accruals.Signal, got.Accruals.Comment)
	}
}

func TestClassify_AccrualsGreen(t *testing.T) {
	tests := []struct {
		name   string
		ni, cf string
	}{
		{"cash covers income", "500", "400"},
		{"cash equals floor", "500", "250"},
		{"loss-making but cash-stable is not flagged", "-300", "100"},
		{"loss-making and cash-negative is out of scope", "-300", "-100"},
	}
	prior := record("2023-03-31", "", "", "", "")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current := record("2024-03-31", "", "", tt.ni, tt.cf)
			got := Classify(current, prior, testThresholds)
			if got.Accruals.Pending || got.Accruals.Signal != model.SignalGreen {
				t.Errorf("expected GREEN, got pending=%v signal=%s", got.Accruals.Pending, got.Accruals.Signal)
			}
		})
	}
}

func TestClassify_ZeroPriorInventoryIsPending(t *testing.T) {
	// Division by a zero base is undefined: pending, not an error and not GREEN.
	prior := record("2023-03-31", "100", "0", "", "")
	current := record("2024-03-31", "110", "50", "", "")

	got := Classify(current, prior, testThresholds)
	if !got.Inventory.Pending {
		t.Errorf("expected pending inventory category, got %s", got.Inventory.Signal)
	}
}

func TestClassify_MissingPriorIsAllPending(t *testing.T) {
	current := record("2024-03-31", "110", "150", "500", "-50")
	got := Classify(current, nil, testThresholds)
	if !got.AllPending() {
		t.Errorf("expected both categories pending, got inventory=%+v accruals=%+v", got.Inventory, got.Accruals)
	}
}

func TestClassify_CategoriesAreIndependent(t *testing.T) {
	// Accrual fields absent, inventory fields present: inventory still classifies.
	prior := record("2023-03-31", "100", "100", "", "")
	current := record("2024-03-31", "110", "150", "", "")

	got := Classify(current, prior, testThresholds)
	if got.Inventory.Pending {
		t.Error("inventory category should classify despite absent accrual fields")
	}
	if !got.Accruals.Pending {
		t.Errorf("accruals category should be pending, got %s", got.Accruals.Signal)
	}
}

func TestClassify_InventoryMonotonicInCurrentInventory(t *testing.T) {
	rank := map[model.Signal]int{model.SignalGreen: 0, model.SignalYellow: 1, model.SignalRed: 2}
	prior := record("2023-03-31", "100", "100", "", "")

	last := -1
	for _, inv := range []string{"100", "115", "121", "130", "141", "150", "300"} {
		current := record("2024-03-31", "110", inv, "", "")
		got := Classify(current, prior, testThresholds)
		if got.Inventory.Pending {
			t.Fatalf("inventory=%s: unexpected pending", inv)
		}
		if r := rank[got.Inventory.Signal]; r < last {
			t.Errorf("inventory=%s: signal downgraded from rank %d to %d", inv, last, r)
		} else {
			last = r
		}
	}
}

func TestClassify_Deterministic(t *testing.T) {
	prior := record("2023-03-31", "100", "100", "400", "150")
	current := record("2024-03-31", "110", "132", "500", "200")

	first := Classify(current, prior, testThresholds)
	second := Classify(current, prior, testThresholds)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("classification is not deterministic:\n  first:  %+v\n  second: %+v", first, second)
	}
}
