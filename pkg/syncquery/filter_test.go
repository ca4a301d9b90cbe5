package syncquery

import (
	"testing"

	"syncgate/pkg/apperrors"
)

func TestClampPageSize(t *testing.T) {
	tests := []struct {
		name      string
		requested int
		want      int
	}{
		{"零取默认", 0, 50},
		{"负数取默认", -3, 50},
		{"正常值保留", 20, 20},
		{"超上限收缩", 5000, 1000},
		{"恰好上限", 1000, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampPageSize(tt.requested, 50, 1000); got != tt.want {
				t.Errorf("ClampPageSize(%d) = %d, want %d", tt.requested, got, tt.want)
			}
		})
	}
}

func TestPageCount(t *testing.T) {
	tests := []struct {
		total    int64
		pageSize int
		want     int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{99, 10, 10},
		{100, 10, 10},
		{101, 10, 11},
		{5, 0, 0},
	}
	for _, tt := range tests {
		if got := PageCount(tt.total, tt.pageSize); got != tt.want {
			t.Errorf("PageCount(%d, %d) = %d, want %d", tt.total, tt.pageSize, got, tt.want)
		}
	}
}

func TestFindWhere(t *testing.T) {
	filter := &QueryFilter{
		WhereOptions: []WhereOption{
			{PropertyPath: "LastUpdateTime", Operator: ">", Value: float64(100)},
			{PropertyPath: "Subject", Operator: "like", Value: "%a%"},
		},
	}

	if opt := filter.FindWhere("LastUpdateTime"); opt == nil || opt.Operator != ">" {
		t.Errorf("FindWhere(LastUpdateTime) = %+v", opt)
	}
	if opt := filter.FindWhere("Missing"); opt != nil {
		t.Errorf("FindWhere(Missing) = %+v, want nil", opt)
	}
}

func TestApplyWhereValidation(t *testing.T) {
	columns := map[string]string{"ID": "id"}

	// 白名单外的属性名
	_, err := ApplyWhere(nil, []WhereOption{{PropertyPath: "PasswordHash", Operator: "=", Value: "x"}}, columns)
	if apperrors.KindOf(err) != apperrors.KindValidation {
		t.Errorf("unknown property kind = %v, want KindValidation", apperrors.KindOf(err))
	}

	// 非法操作符
	_, err = ApplyWhere(nil, []WhereOption{{PropertyPath: "ID", Operator: "; DROP TABLE", Value: 1}}, columns)
	if apperrors.KindOf(err) != apperrors.KindValidation {
		t.Errorf("unknown operator kind = %v, want KindValidation", apperrors.KindOf(err))
	}
}

func TestApplyOrderValidation(t *testing.T) {
	columns := map[string]string{"ID": "id"}

	_, err := ApplyOrder(nil, []OrderOption{{PropertyPath: "Secret", Ascending: true}}, columns)
	if apperrors.KindOf(err) != apperrors.KindValidation {
		t.Errorf("unknown property kind = %v, want KindValidation", apperrors.KindOf(err))
	}
}

func TestInt64Value(t *testing.T) {
	tests := []struct {
		value interface{}
		want  int64
		ok    bool
	}{
		{float64(42), 42, true},
		{int(7), 7, true},
		{int64(9), 9, true},
		{"123", 123, true},
		{"abc", 0, false},
		{nil, 0, false},
		{true, 0, false},
	}
	for _, tt := range tests {
		got, ok := Int64Value(tt.value)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Int64Value(%v) = (%d, %v), want (%d, %v)", tt.value, got, ok, tt.want, tt.ok)
		}
	}
}
