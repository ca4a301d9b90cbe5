package engine

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"syncgate/internal/models"
	"syncgate/pkg/apperrors"
	"syncgate/pkg/syncquery"
	"syncgate/pkg/version"
)

type noteDTO struct {
	BaseDTO
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type noteAdapter struct{}

func (noteAdapter) TableName() string       { return "notes" }
func (noteAdapter) NewEntity() *models.Note { return &models.Note{} }
func (noteAdapter) NewDTO() *noteDTO        { return &noteDTO{} }

func (noteAdapter) ToDTO(n *models.Note) *noteDTO {
	return &noteDTO{
		BaseDTO: BaseDTO{
			ID:             n.ID,
			TenantID:       n.TenantID,
			CreateTime:     n.CreateTime,
			LastUpdateTime: n.LastUpdateTime,
		},
		Subject: n.Subject,
		Body:    n.Body,
	}
}

func (noteAdapter) ToEntity(d *noteDTO) *models.Note {
	n := &models.Note{Subject: d.Subject, Body: d.Body}
	n.ID = d.ID
	n.TenantID = d.TenantID
	n.CreateTime = d.CreateTime
	n.LastUpdateTime = d.LastUpdateTime
	return n
}

func (noteAdapter) Columns() map[string]string {
	return map[string]string{"Subject": "subject", "Body": "body"}
}

func newTestEngine(t *testing.T, counter version.Counter, opts Options) (*Engine[*models.Note, *noteDTO], sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}
	return New[*models.Note, *noteDTO](gdb, noteAdapter{}, counter, opts), mock
}

func defaultOptions() Options {
	return Options{
		MaxItemAllowed:   1000,
		DefaultPageSize:  50,
		SupportDeltaSync: true,
	}
}

func noteRows(notes ...*models.Note) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "tenant_id", "create_time", "last_update_time", "subject", "body", "extra"})
	for _, n := range notes {
		rows.AddRow(n.ID, n.TenantID, n.CreateTime, n.LastUpdateTime, n.Subject, n.Body, nil)
	}
	return rows
}

func note(id, tenantID uint, createTime, lastUpdateTime int64, subject string) *models.Note {
	n := &models.Note{Subject: subject}
	n.ID = id
	n.TenantID = tenantID
	n.CreateTime = createTime
	n.LastUpdateTime = lastUpdateTime
	return n
}

func TestGetNilFilterScopedToTenant(t *testing.T) {
	counter := version.NewMemoryCounter()
	eng, mock := newTestEngine(t, counter, defaultOptions())

	mock.ExpectQuery(`SELECT (.+) FROM "notes" WHERE tenant_id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(noteRows(note(1, 7, 10, 10, "a"), note(2, 7, 20, 20, "b")))

	result, err := eng.Get(7, nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(result.Items) != 2 || result.TotalItemCount != 2 {
		t.Fatalf("unexpected result: %d items, total %d", len(result.Items), result.TotalItemCount)
	}
	if result.LastUpdateTime == 0 {
		t.Fatal("snapshot time was not set")
	}
	// 只读操作不推动版本号
	if v, _ := counter.Current(7); v != 0 {
		t.Fatalf("read bumped the version counter: %d", v)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetVersionShortCircuit(t *testing.T) {
	counter := version.NewMemoryCounter()
	if _, err := counter.Increase(7); err != nil {
		t.Fatalf("Increase: %v", err)
	}
	eng, mock := newTestEngine(t, counter, defaultOptions())

	result, err := eng.Get(7, &syncquery.QueryFilter{VersionNumber: 1})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(result.Items) != 0 {
		t.Fatalf("expected empty result, got %d items", len(result.Items))
	}
	if result.VersionNumber != 1 {
		t.Fatalf("unexpected version: %d", result.VersionNumber)
	}
	// 版本一致时不应发出任何查询
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("store was touched: %v", err)
	}
}

func TestGetUnpagedOversizedSet(t *testing.T) {
	opts := defaultOptions()
	opts.MaxItemAllowed = 3
	eng, mock := newTestEngine(t, version.NewMemoryCounter(), opts)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "notes"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(10))

	_, err := eng.Get(7, &syncquery.QueryFilter{})
	if apperrors.KindOf(err) != apperrors.KindSetTooLarge {
		t.Fatalf("expected KindSetTooLarge, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetPagedClampsPageSize(t *testing.T) {
	opts := defaultOptions()
	opts.MaxItemAllowed = 10
	eng, mock := newTestEngine(t, version.NewMemoryCounter(), opts)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "notes"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))
	mock.ExpectQuery(`SELECT (.+) FROM "notes" (.+)ORDER BY id(.+)LIMIT \$2 OFFSET \$3`).
		WithArgs(int64(7), 10, 10).
		WillReturnRows(noteRows(note(11, 7, 10, 10, "k"), note(12, 7, 10, 10, "l")))

	result, err := eng.Get(7, &syncquery.QueryFilter{PageIndex: 2, PageSize: 100})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if result.PageSize != 10 {
		t.Fatalf("page size not clamped: %d", result.PageSize)
	}
	if result.PageCount != 3 || result.TotalItemCount != 25 || result.PageIndex != 2 {
		t.Fatalf("unexpected paging: count=%d total=%d index=%d", result.PageCount, result.TotalItemCount, result.PageIndex)
	}
	if len(result.Items) != 2 {
		t.Fatalf("unexpected items: %d", len(result.Items))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetAllUnsupported(t *testing.T) {
	eng, _ := newTestEngine(t, version.NewMemoryCounter(), defaultOptions())

	_, err := eng.GetAll(7, nil)
	if apperrors.KindOf(err) != apperrors.KindUnsupported {
		t.Fatalf("expected KindUnsupported, got %v", err)
	}
}

func TestGetUpdateRequiresWatermark(t *testing.T) {
	eng, _ := newTestEngine(t, version.NewMemoryCounter(), defaultOptions())

	_, err := eng.GetUpdate(7, &syncquery.QueryFilter{})
	if apperrors.KindOf(err) != apperrors.KindValidation {
		t.Fatalf("expected KindValidation, got %v", err)
	}
}

func TestGetUpdateDeltaCompleteness(t *testing.T) {
	eng, mock := newTestEngine(t, version.NewMemoryCounter(), defaultOptions())

	// 水位3：CreateTime=1的实体是修改，CreateTime=5的是新增，墓碑在8处
	mock.ExpectQuery(`SELECT (.+) FROM "sync_tables" WHERE table_name = \$1`).
		WithArgs("notes", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "table_name"}).AddRow(42, "notes"))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "notes"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "deleted_items"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT (.+) FROM "notes"`).
		WillReturnRows(noteRows(note(1, 7, 1, 6, "old"), note(2, 7, 5, 5, "new")))
	mock.ExpectQuery(`SELECT (.+) FROM "deleted_items"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "table_id", "deleted_id", "create_time"}).
			AddRow(1, 7, 42, 3, 8))

	filter := &syncquery.QueryFilter{
		WhereOptions: []syncquery.WhereOption{
			{PropertyPath: "LastUpdateTime", Operator: ">", Value: int64(3)},
		},
	}
	result, err := eng.GetUpdate(7, filter)
	if err != nil {
		t.Fatalf("GetUpdate: %v", err)
	}
	if len(result.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(result.Items))
	}
	states := map[uint]int{}
	for _, item := range result.Items {
		states[item.GetID()] = item.GetState()
	}
	if states[1] != StateUpdate {
		t.Fatalf("entity 1 should be update, got %d", states[1])
	}
	if states[2] != StateAdd {
		t.Fatalf("entity 2 should be add, got %d", states[2])
	}
	if states[3] != StateDelete {
		t.Fatalf("entity 3 should be delete stub, got %d", states[3])
	}
	if result.LastUpdateTime == 0 {
		t.Fatal("snapshot time was not set")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetUpdateUnregisteredTable(t *testing.T) {
	eng, mock := newTestEngine(t, version.NewMemoryCounter(), defaultOptions())

	mock.ExpectQuery(`SELECT (.+) FROM "sync_tables"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "table_name"}))

	filter := &syncquery.QueryFilter{
		WhereOptions: []syncquery.WhereOption{
			{PropertyPath: "LastUpdateTime", Operator: ">", Value: int64(0)},
		},
	}
	_, err := eng.GetUpdate(7, filter)
	if apperrors.KindOf(err) != apperrors.KindUnsupported {
		t.Fatalf("expected KindUnsupported, got %v", err)
	}
}

func TestAddAssignsIDAndBumpsVersion(t *testing.T) {
	counter := version.NewMemoryCounter()
	eng, mock := newTestEngine(t, counter, defaultOptions())

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "notes"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.ExpectCommit()

	id, err := eng.Add(7, &noteDTO{Subject: "hello"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if id != 9 {
		t.Fatalf("unexpected id: %d", id)
	}
	v, _ := counter.Current(7)
	if v != 1 {
		t.Fatalf("version not bumped: %d", v)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAddRunsHooksInsideTransaction(t *testing.T) {
	counter := version.NewMemoryCounter()
	eng, mock := newTestEngine(t, counter, defaultOptions())

	beforeCalled := false
	var afterID uint
	eng.WithHooks(Hooks[*models.Note, *noteDTO]{
		BeforeSave: func(tx *gorm.DB, tenantID uint, dtos []*noteDTO) error {
			beforeCalled = true
			return nil
		},
		AfterSave: func(tx *gorm.DB, tenantID uint, dtos []*noteDTO, entities []*models.Note) error {
			afterID = entities[0].GetID()
			return tx.Exec(`UPDATE "notes" SET body = ? WHERE id = ?`, "stamped", entities[0].GetID()).Error
		},
	})

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "notes"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.ExpectExec(`UPDATE "notes" SET body`).
		WithArgs("stamped", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if _, err := eng.Add(7, &noteDTO{Subject: "hello"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !beforeCalled {
		t.Fatal("BeforeSave hook was not invoked")
	}
	if afterID != 9 {
		t.Fatalf("AfterSave saw wrong entity id: %d", afterID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAddHookErrorRollsBack(t *testing.T) {
	counter := version.NewMemoryCounter()
	eng, mock := newTestEngine(t, counter, defaultOptions())

	eng.WithHooks(Hooks[*models.Note, *noteDTO]{
		BeforeSave: func(tx *gorm.DB, tenantID uint, dtos []*noteDTO) error {
			return apperrors.Validation("拒绝写入")
		},
	})

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := eng.Add(7, &noteDTO{Subject: "hello"})
	if apperrors.KindOf(err) != apperrors.KindValidation {
		t.Fatalf("expected KindValidation, got %v", err)
	}
	// 钩子失败的事务不推动版本号
	if v, _ := counter.Current(7); v != 0 {
		t.Fatalf("failed transaction bumped the version counter: %d", v)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateTenantMismatchKeepsStoreUntouched(t *testing.T) {
	counter := version.NewMemoryCounter()
	eng, mock := newTestEngine(t, counter, defaultOptions())

	dto := &noteDTO{Subject: "stolen"}
	dto.ID = 5
	dto.TenantID = 9

	err := eng.Update(7, dto)
	if apperrors.KindOf(err) != apperrors.KindTenantMismatch {
		t.Fatalf("expected KindTenantMismatch, got %v", err)
	}
	v, _ := counter.Current(7)
	if v != 0 {
		t.Fatalf("version bumped on rejected mutation: %d", v)
	}
	// 没有设置任何期望，任何落到存储的调用都会在这里暴露
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("store was touched: %v", err)
	}
}

func TestUpdateForeignRowRejected(t *testing.T) {
	eng, mock := newTestEngine(t, version.NewMemoryCounter(), defaultOptions())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "notes"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectRollback()

	dto := &noteDTO{Subject: "x"}
	dto.ID = 5
	err := eng.Update(7, dto)
	if apperrors.KindOf(err) != apperrors.KindTenantMismatch {
		t.Fatalf("expected KindTenantMismatch, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeleteWritesTombstoneInSameTransaction(t *testing.T) {
	counter := version.NewMemoryCounter()
	eng, mock := newTestEngine(t, counter, defaultOptions())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "notes"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(`DELETE FROM "notes" WHERE id = \$1 AND tenant_id = \$2`).
		WithArgs(int64(5), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT (.+) FROM "sync_tables"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "table_name"}).AddRow(42, "notes"))
	mock.ExpectQuery(`INSERT INTO "deleted_items"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	dto := &noteDTO{}
	dto.ID = 5
	if err := eng.Delete(7, dto); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	v, _ := counter.Current(7)
	if v != 1 {
		t.Fatalf("version not bumped: %d", v)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSaveRejectsUnknownState(t *testing.T) {
	eng, mock := newTestEngine(t, version.NewMemoryCounter(), defaultOptions())

	good := &noteDTO{Subject: "a"}
	good.State = StateAdd
	bad := &noteDTO{Subject: "b"}
	bad.State = 7

	err := eng.Save(7, []*noteDTO{good, bad})
	if apperrors.KindOf(err) != apperrors.KindValidation {
		t.Fatalf("expected KindValidation, got %v", err)
	}
	// 整批拒绝，存储不应被碰到
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("store was touched: %v", err)
	}
}

func TestSaveOversizedBatch(t *testing.T) {
	opts := defaultOptions()
	opts.MaxItemAllowed = 2
	eng, _ := newTestEngine(t, version.NewMemoryCounter(), opts)

	dtos := make([]*noteDTO, 3)
	for i := range dtos {
		d := &noteDTO{}
		d.State = StateAdd
		dtos[i] = d
	}
	err := eng.Save(7, dtos)
	if apperrors.KindOf(err) != apperrors.KindSetTooLarge {
		t.Fatalf("expected KindSetTooLarge, got %v", err)
	}
}

func TestSaveMixedBatchSingleVersionBump(t *testing.T) {
	counter := version.NewMemoryCounter()
	eng, mock := newTestEngine(t, counter, defaultOptions())

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "notes"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(30))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "notes"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(`UPDATE "notes" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	add := &noteDTO{Subject: "fresh"}
	add.State = StateAdd
	update := &noteDTO{Subject: "edited"}
	update.ID = 12
	update.State = StateUpdate

	if err := eng.Save(7, []*noteDTO{add, update}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if add.ID != 30 {
		t.Fatalf("add did not receive assigned id: %d", add.ID)
	}
	v, _ := counter.Current(7)
	if v != 1 {
		t.Fatalf("expected single version bump, got %d", v)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
