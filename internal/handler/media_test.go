package handler_test

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Welazure/Item-trade-backend/internal/models"
)

// uploadMedia 发一个 multipart 上传请求
func uploadMedia(t *testing.T, e *testEnv, token string, itemID uint, filename string, primary bool) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	// 内容随意，扩展名才是判定依据
	if _, err := fw.Write([]byte("not really image data")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if primary {
		if err := mw.WriteField("is_primary", "true"); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest("POST", fmt.Sprintf("/api/media/upload/%d", itemID), &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func primaryCount(t *testing.T, e *testEnv, itemID uint) (total, primary int64) {
	t.Helper()
	if err := e.db.Model(&models.Media{}).Where("item_id = ?", itemID).Count(&total).Error; err != nil {
		t.Fatalf("count media: %v", err)
	}
	if err := e.db.Model(&models.Media{}).
		Where("item_id = ? AND is_primary = ?", itemID, true).
		Count(&primary).Error; err != nil {
		t.Fatalf("count primary: %v", err)
	}
	return total, primary
}

// TestUploadMedia_PrimaryRules 首个附件自动成为主图；
// 显式指定主图时旧主图被取消；任意时刻主图恰好一张
func TestUploadMedia_PrimaryRules(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser("owner", models.RoleUser, 2)
	item := e.createItem(owner, "stereo", true)
	token := e.token(owner)

	// 第一张：没有显式指定，也要自动成为主图
	w := uploadMedia(t, e, token, item.ID, "front.jpg", false)
	wantStatus(t, w, http.StatusOK)
	first := decodeData(t, w)["media"].(map[string]interface{})
	if isPrimary, _ := first["is_primary"].(bool); !isPrimary {
		t.Fatal("first upload should become primary automatically")
	}

	// 第二张显式设为主图 → 第一张被取消
	w = uploadMedia(t, e, token, item.ID, "back.png", true)
	wantStatus(t, w, http.StatusOK)
	second := decodeData(t, w)["media"].(map[string]interface{})
	if isPrimary, _ := second["is_primary"].(bool); !isPrimary {
		t.Fatal("explicit primary upload should be primary")
	}

	total, primary := primaryCount(t, e, item.ID)
	if total != 2 || primary != 1 {
		t.Fatalf("total=%d primary=%d, want 2 and 1", total, primary)
	}

	var firstRow models.Media
	if err := e.db.First(&firstRow, uint(first["id"].(float64))).Error; err != nil {
		t.Fatalf("load first media: %v", err)
	}
	if firstRow.IsPrimary {
		t.Fatal("old primary should have been unset")
	}

	// 第三张不指定主图 → 不抢主图
	w = uploadMedia(t, e, token, item.ID, "clip.mp4", false)
	wantStatus(t, w, http.StatusOK)
	third := decodeData(t, w)["media"].(map[string]interface{})
	if third["media_type"] != string(models.MediaVideo) {
		t.Fatalf("media_type = %v, want Video", third["media_type"])
	}
	if _, primary := primaryCount(t, e, item.ID); primary != 1 {
		t.Fatalf("primary = %d, want exactly 1", primary)
	}
}

// TestUploadMedia_Validation 权限和文件类型
func TestUploadMedia_Validation(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser("owner", models.RoleUser, 2)
	stranger := e.createUser("stranger", models.RoleUser, 2)
	item := e.createItem(owner, "tv", true)

	// 只有所有者（或管理员）能传
	wantStatus(t, uploadMedia(t, e, e.token(stranger), item.ID, "x.jpg", false), http.StatusForbidden)

	// 不在白名单里的扩展名
	wantStatus(t, uploadMedia(t, e, e.token(owner), item.ID, "evil.exe", false), http.StatusBadRequest)

	// 物品不存在
	wantStatus(t, uploadMedia(t, e, e.token(owner), 99999, "x.jpg", false), http.StatusNotFound)
}
