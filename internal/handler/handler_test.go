package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/Welazure/Item-trade-backend/internal/config"
	"github.com/Welazure/Item-trade-backend/internal/database"
	"github.com/Welazure/Item-trade-backend/internal/models"
	"github.com/Welazure/Item-trade-backend/internal/router"
	"github.com/Welazure/Item-trade-backend/internal/util"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// testEnv 起一个完整的路由 + 临时 SQLite 库
type testEnv struct {
	t   *testing.T
	db  *gorm.DB
	r   *gin.Engine
	cfg *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	cfg := &config.Config{
		Server:   config.ServerConfig{Mode: gin.TestMode},
		Database: config.DatabaseConfig{Path: filepath.Join(dir, "test.db")},
		JWT:      config.JWTConfig{Secret: "test_secret", Issuer: "test", ExpireHours: 1},
		Upload:   config.UploadConfig{Dir: filepath.Join(dir, "uploads"), MaxSizeMB: 5},
		App:      config.AppSubConfig{PageSize: 10},
	}

	db, err := database.Init(cfg.Database)
	if err != nil {
		t.Fatalf("init database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := database.SeedCategories(db); err != nil {
		t.Fatalf("seed categories: %v", err)
	}

	// SQLite 单写者，测试里把连接池压到 1，写事务全部串行
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return &testEnv{
		t:   t,
		db:  db,
		r:   router.SetupRouter(cfg, db),
		cfg: cfg,
	}
}

var userSeq int

// createUser 直接写库建一个用户
func (e *testEnv) createUser(username string, role models.Role, points int) *models.User {
	e.t.Helper()
	userSeq++
	hash, err := bcrypt.GenerateFromPassword([]byte("Passw0rd123"), bcrypt.MinCost)
	if err != nil {
		e.t.Fatalf("hash password: %v", err)
	}
	u := &models.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		Email:        username + "@test.local",
		Name:         username,
		Address:      "test street 1",
		PhoneNumber:  fmt.Sprintf("1380000%04d", userSeq),
		Points:       points,
		RegisteredAt: time.Now().UTC(),
	}
	if err := e.db.Create(u).Error; err != nil {
		e.t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// createItem 直接写库挂一件物品
func (e *testEnv) createItem(owner *models.User, name string, approved bool) *models.Item {
	e.t.Helper()
	var category models.Category
	if err := e.db.First(&category).Error; err != nil {
		e.t.Fatalf("load category: %v", err)
	}
	item := &models.Item{
		UserID:      owner.ID,
		CategoryID:  category.ID,
		Name:        name,
		Description: "a thing for trade",
		Request:     "anything nice",
		IsApproved:  approved,
	}
	if err := e.db.Create(item).Error; err != nil {
		e.t.Fatalf("create item %s: %v", name, err)
	}
	return item
}

func (e *testEnv) token(u *models.User) string {
	e.t.Helper()
	token, err := util.GenerateToken(e.cfg.JWT.Secret, e.cfg.JWT.Issuer, u.ID, u.Role, time.Hour)
	if err != nil {
		e.t.Fatalf("generate token: %v", err)
	}
	return token
}

// do 发一个 JSON 请求，token 为空表示匿名
func (e *testEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

// decodeData 解出统一返回结构里的 data
func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp struct {
		Code int                    `json:"code"`
		Data map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return resp.Data
}

func wantStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d, body: %s", w.Code, want, w.Body.String())
	}
}

// activeBookings 统计某物品进行中的预订数
func (e *testEnv) activeBookings(itemID uint) int64 {
	e.t.Helper()
	var n int64
	if err := e.db.Model(&models.Booking{}).
		Where("item_id = ? AND is_active = ?", itemID, true).
		Count(&n).Error; err != nil {
		e.t.Fatalf("count bookings: %v", err)
	}
	return n
}
