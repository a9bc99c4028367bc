package handler_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/Welazure/Item-trade-backend/internal/models"
)

func itemPayload(categoryID uint) map[string]interface{} {
	return map[string]interface{}{
		"name":        "wooden desk",
		"description": "solid oak, some scratches",
		"request":     "a decent office chair",
		"category_id": categoryID,
	}
}

func firstCategoryID(t *testing.T, e *testEnv) uint {
	t.Helper()
	var category models.Category
	if err := e.db.First(&category).Error; err != nil {
		t.Fatalf("load category: %v", err)
	}
	return category.ID
}

// TestCreateItem_DebitsPoint 发布成功扣 1 积分，新物品待审核
func TestCreateItem_DebitsPoint(t *testing.T) {
	e := newTestEnv(t)
	user := e.createUser("lister", models.RoleUser, 2)

	w := e.do("POST", "/api/items", e.token(user), itemPayload(firstCategoryID(t, e)))
	wantStatus(t, w, http.StatusOK)

	item := decodeData(t, w)["item"].(map[string]interface{})
	if approved, _ := item["is_approved"].(bool); approved {
		t.Fatal("new item must start unapproved")
	}

	var fresh models.User
	if err := e.db.First(&fresh, user.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if fresh.Points != 1 {
		t.Fatalf("points = %d, want 1", fresh.Points)
	}
}

// TestCreateItem_InsufficientPoints 余额为 0 时拒绝，余额不变、不产生物品
func TestCreateItem_InsufficientPoints(t *testing.T) {
	e := newTestEnv(t)
	user := e.createUser("broke", models.RoleUser, 0)

	w := e.do("POST", "/api/items", e.token(user), itemPayload(firstCategoryID(t, e)))
	wantStatus(t, w, http.StatusBadRequest)

	var fresh models.User
	if err := e.db.First(&fresh, user.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if fresh.Points != 0 {
		t.Fatalf("points = %d, want 0", fresh.Points)
	}

	var count int64
	if err := e.db.Model(&models.Item{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		t.Fatalf("count items: %v", err)
	}
	if count != 0 {
		t.Fatalf("items = %d, want 0", count)
	}
}

// TestApproveItem_Idempotent 重复审核不报错，状态保持通过
func TestApproveItem_Idempotent(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser("owner", models.RoleUser, 2)
	admin := e.createUser("admin", models.RoleAdmin, 2)
	item := e.createItem(owner, "guitar", false)

	path := fmt.Sprintf("/api/items/%d/approve", item.ID)

	// 普通用户无权审核
	wantStatus(t, e.do("POST", path, e.token(owner), nil), http.StatusForbidden)

	wantStatus(t, e.do("POST", path, e.token(admin), nil), http.StatusOK)
	wantStatus(t, e.do("POST", path, e.token(admin), nil), http.StatusOK)

	var fresh models.Item
	if err := e.db.First(&fresh, item.ID).Error; err != nil {
		t.Fatalf("load item: %v", err)
	}
	if !fresh.IsApproved {
		t.Fatal("item should stay approved")
	}
}

// TestUpdateItem_ResetsApproval 普通用户编辑后回到待审核，管理员编辑不影响
func TestUpdateItem_ResetsApproval(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser("owner", models.RoleUser, 2)
	admin := e.createUser("admin", models.RoleAdmin, 2)
	item := e.createItem(owner, "bookshelf", true)

	path := fmt.Sprintf("/api/items/%d", item.ID)
	payload := itemPayload(item.CategoryID)

	// 所有者编辑 → 重新审核
	wantStatus(t, e.do("PUT", path, e.token(owner), payload), http.StatusOK)
	var fresh models.Item
	if err := e.db.First(&fresh, item.ID).Error; err != nil {
		t.Fatalf("load item: %v", err)
	}
	if fresh.IsApproved {
		t.Fatal("non-admin edit must reset approval")
	}

	// 过审后管理员编辑 → 保持通过
	if err := e.db.Model(&fresh).Update("is_approved", true).Error; err != nil {
		t.Fatalf("approve item: %v", err)
	}
	wantStatus(t, e.do("PUT", path, e.token(admin), payload), http.StatusOK)
	if err := e.db.First(&fresh, item.ID).Error; err != nil {
		t.Fatalf("load item: %v", err)
	}
	if !fresh.IsApproved {
		t.Fatal("admin edit must not reset approval")
	}

	// 无关用户不能编辑
	stranger := e.createUser("stranger", models.RoleUser, 2)
	wantStatus(t, e.do("PUT", path, e.token(stranger), payload), http.StatusForbidden)
}

// TestListApprovedItems 列表只含已过审且未被订走的物品，分页字段齐全
func TestListApprovedItems(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser("owner", models.RoleUser, 10)
	booker := e.createUser("booker", models.RoleUser, 2)

	e.createItem(owner, "visible sofa", true)
	booked := e.createItem(owner, "booked table", true)
	e.createItem(owner, "pending mirror", false)

	wantStatus(t, e.do("POST", fmt.Sprintf("/api/bookings/%d", booked.ID), e.token(booker), nil), http.StatusOK)

	// 匿名可浏览
	w := e.do("GET", "/api/items", "", nil)
	wantStatus(t, w, http.StatusOK)
	data := decodeData(t, w)

	items := data["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("items len = %d, want 1 (unapproved and booked excluded)", len(items))
	}
	got := items[0].(map[string]interface{})
	if got["name"] != "visible sofa" {
		t.Fatalf("unexpected item %v", got["name"])
	}
	if int(data["total_count"].(float64)) != 1 || int(data["total_pages"].(float64)) != 1 {
		t.Fatalf("pagination totals wrong: %v / %v", data["total_count"], data["total_pages"])
	}

	// 取消预订后重新可见
	var booking models.Booking
	if err := e.db.Where("item_id = ?", booked.ID).First(&booking).Error; err != nil {
		t.Fatalf("load booking: %v", err)
	}
	wantStatus(t, e.do("PUT", fmt.Sprintf("/api/bookings/%d/cancel", booking.ID), e.token(booker), nil), http.StatusOK)

	w = e.do("GET", "/api/items", "", nil)
	wantStatus(t, w, http.StatusOK)
	if got := len(decodeData(t, w)["items"].([]interface{})); got != 2 {
		t.Fatalf("items len = %d, want 2 after cancel", got)
	}

	// 关键词搜索
	w = e.do("GET", "/api/items?search=table", "", nil)
	wantStatus(t, w, http.StatusOK)
	if got := len(decodeData(t, w)["items"].([]interface{})); got != 1 {
		t.Fatalf("search result len = %d, want 1", got)
	}
}

// TestGetItemByID_Visibility 未过审的物品只有所有者和管理员能看
func TestGetItemByID_Visibility(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser("owner", models.RoleUser, 2)
	stranger := e.createUser("stranger", models.RoleUser, 2)
	admin := e.createUser("admin", models.RoleAdmin, 2)
	item := e.createItem(owner, "hidden vase", false)

	path := fmt.Sprintf("/api/items/%d", item.ID)

	wantStatus(t, e.do("GET", path, "", nil), http.StatusForbidden)
	wantStatus(t, e.do("GET", path, e.token(stranger), nil), http.StatusForbidden)
	wantStatus(t, e.do("GET", path, e.token(owner), nil), http.StatusOK)
	wantStatus(t, e.do("GET", path, e.token(admin), nil), http.StatusOK)
}

// TestDeleteItem_Cascades 删物品连带删媒体记录和预订
func TestDeleteItem_Cascades(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser("owner", models.RoleUser, 2)
	booker := e.createUser("booker", models.RoleUser, 2)
	item := e.createItem(owner, "doomed shelf", true)

	wantStatus(t, e.do("POST", fmt.Sprintf("/api/bookings/%d", item.ID), e.token(booker), nil), http.StatusOK)
	if err := e.db.Create(&models.Media{
		ItemID:    item.ID,
		FileName:  "a.jpg",
		FilePath:  "/uploads/items/x/a.jpg",
		MediaType: models.MediaImage,
		IsPrimary: true,
	}).Error; err != nil {
		t.Fatalf("create media: %v", err)
	}

	wantStatus(t, e.do("DELETE", fmt.Sprintf("/api/items/%d", item.ID), e.token(owner), nil), http.StatusOK)

	var bookings, media int64
	e.db.Model(&models.Booking{}).Where("item_id = ?", item.ID).Count(&bookings)
	e.db.Model(&models.Media{}).Where("item_id = ?", item.ID).Count(&media)
	if bookings != 0 || media != 0 {
		t.Fatalf("leftovers after delete: bookings=%d media=%d", bookings, media)
	}
}
