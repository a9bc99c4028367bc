package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/Welazure/Item-trade-backend/internal/authz"
	"github.com/Welazure/Item-trade-backend/internal/metrics"
	"github.com/Welazure/Item-trade-backend/internal/models"
	"github.com/Welazure/Item-trade-backend/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// BookingHandler 负责预订相关接口
type BookingHandler struct {
	DB *gorm.DB
}

func NewBookingHandler(db *gorm.DB) *BookingHandler {
	return &BookingHandler{DB: db}
}

// 事务内部用的哨兵错误，出来后映射成对应的响应
var (
	errItemNotBookable = errors.New("item not bookable")
	errOwnBooking      = errors.New("cannot book own item")
	errAlreadyBooked   = errors.New("item already booked")
)

// ---------- 请求/响应结构 ----------

// bookerProfile 展示给物品所有者看的预订人资料
type bookerProfile struct {
	ID           uint      `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Address      string    `json:"address"`
	PhoneNumber  string    `json:"phone_number"`
	RegisteredAt time.Time `json:"registered_at"`
}

// ownerContact 展示给预订人看的物品所有者联系方式
type ownerContact struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
}

type bookingDetail struct {
	ID          uint           `json:"id"`
	ItemID      uint           `json:"item_id"`
	ItemName    string         `json:"item_name"`
	BookedAt    time.Time      `json:"booked_at"`
	CancelledAt *time.Time     `json:"cancelled_at,omitempty"`
	IsActive    bool           `json:"is_active"`
	Booker      *bookerProfile `json:"booker,omitempty"`
	ItemOwner   *ownerContact  `json:"item_owner,omitempty"`
}

func toBookerProfile(u *models.User) *bookerProfile {
	return &bookerProfile{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Name:         u.Name,
		Address:      u.Address,
		PhoneNumber:  u.PhoneNumber,
		RegisteredAt: u.RegisteredAt,
	}
}

func toOwnerContact(u *models.User) *ownerContact {
	return &ownerContact{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
	}
}

// toDetail 组装预订详情。withBooker / withOwner 控制双方互相能看到什么。
func toDetail(b *models.Booking, withBooker, withOwner bool) bookingDetail {
	d := bookingDetail{
		ID:          b.ID,
		ItemID:      b.ItemID,
		ItemName:    b.Item.Name,
		BookedAt:    b.BookedAt,
		CancelledAt: b.CancelledAt,
		IsActive:    b.IsActive,
	}
	if withBooker {
		d.Booker = toBookerProfile(&b.BookerUser)
	}
	if withOwner {
		d.ItemOwner = toOwnerContact(&b.Item.User)
	}
	return d
}

// ---------- 预订 ----------

// CreateBooking 预订一件物品。
// 三个前置检查和插入放在同一个事务里；并发下两个请求同时通过检查时，
// 由部分唯一索引拦下后插入的那个，映射为 409。
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	itemID, ok := parseID(c, "itemId")
	if !ok {
		return
	}

	var booking models.Booking
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		var item models.Item
		if err := tx.First(&item, itemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errItemNotBookable
			}
			return err
		}
		// 未过审的物品对外等同于不存在
		if !item.IsApproved {
			return errItemNotBookable
		}
		if item.UserID == user.ID {
			return errOwnBooking
		}

		var active int64
		if err := tx.Model(&models.Booking{}).
			Where("item_id = ? AND is_active = ?", itemID, true).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return errAlreadyBooked
		}

		booking = models.Booking{
			ItemID:       item.ID,
			BookerUserID: user.ID,
			BookedAt:     time.Now().UTC(),
			IsActive:     true,
		}
		if err := tx.Create(&booking).Error; err != nil {
			if isUniqueViolation(err) {
				return errAlreadyBooked
			}
			return err
		}
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, errItemNotBookable):
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "物品不存在或尚未通过审核")
		return
	case errors.Is(err, errOwnBooking):
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "不能预订自己发布的物品")
		return
	case errors.Is(err, errAlreadyBooked):
		metrics.BookingConflicts.Inc()
		util.Error(c, http.StatusConflict, util.CodeConflict, "该物品已被预订")
		return
	default:
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "预订失败，请重试")
		return
	}

	metrics.BookingsCreated.Inc()

	// 带上双方信息返回完整详情
	if err := h.DB.Preload("Item.User").Preload("BookerUser").
		First(&booking, booking.ID).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	util.Success(c, util.Response{
		"booking": toDetail(&booking, true, true),
	})
}

// ---------- 查询 ----------

// GetBookingByID 查看单条预订，仅预订人、物品所有者或管理员可见
func (h *BookingHandler) GetBookingByID(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var booking models.Booking
	if err := h.DB.Preload("Item.User").Preload("BookerUser").
		First(&booking, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "预订不存在")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		}
		return
	}

	cap := authz.For(user.ID, user.Role, booking.Item.UserID, booking.BookerUserID)
	if !cap.Allowed() {
		util.Error(c, http.StatusForbidden, util.CodeForbidden, "暂无权限")
		return
	}

	util.Success(c, util.Response{
		"booking": toDetail(&booking, true, true),
	})
}

// GetMyBookings 我发起的预订（包含已取消的历史记录）
func (h *BookingHandler) GetMyBookings(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var bookings []models.Booking
	if err := h.DB.Preload("Item.User").Preload("BookerUser").
		Where("booker_user_id = ?", user.ID).
		Order("booked_at DESC").
		Find(&bookings).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	list := make([]bookingDetail, 0, len(bookings))
	for i := range bookings {
		// 预订人看所有者联系方式
		list = append(list, toDetail(&bookings[i], false, true))
	}
	util.Success(c, util.Response{"bookings": list})
}

// GetMyItemsBookings 别人对我发布物品的预订
func (h *BookingHandler) GetMyItemsBookings(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var bookings []models.Booking
	if err := h.DB.Preload("Item.User").Preload("BookerUser").
		Joins("JOIN items ON items.id = bookings.item_id").
		Where("items.user_id = ?", user.ID).
		Order("booked_at DESC").
		Find(&bookings).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	list := make([]bookingDetail, 0, len(bookings))
	for i := range bookings {
		// 所有者看预订人资料
		list = append(list, toDetail(&bookings[i], true, false))
	}
	util.Success(c, util.Response{"bookings": list})
}

// GetAllBookings 管理员查看全部预订
func (h *BookingHandler) GetAllBookings(c *gin.Context) {
	var bookings []models.Booking
	if err := h.DB.Preload("Item.User").Preload("BookerUser").
		Order("booked_at DESC").
		Find(&bookings).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	list := make([]bookingDetail, 0, len(bookings))
	for i := range bookings {
		list = append(list, toDetail(&bookings[i], true, true))
	}
	util.Success(c, util.Response{"bookings": list})
}

// ---------- 取消 ----------

// CancelBooking 取消预订。预订人、物品所有者或管理员都可以取消，
// 与查看权限用同一套判定。
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var booking models.Booking
	if err := h.DB.Preload("Item").First(&booking, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "预订不存在")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		}
		return
	}

	if !booking.IsActive {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "该预订已取消")
		return
	}

	cap := authz.For(user.ID, user.Role, booking.Item.UserID, booking.BookerUserID)
	if !cap.Allowed() {
		util.Error(c, http.StatusForbidden, util.CodeForbidden, "暂无权限")
		return
	}

	// 条件更新：并发取消时只有一个请求能把 is_active 翻下来
	now := time.Now().UTC()
	res := h.DB.Model(&models.Booking{}).
		Where("id = ? AND is_active = ?", booking.ID, true).
		Updates(map[string]interface{}{
			"is_active":    false,
			"cancelled_at": now,
		})
	if res.Error != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "取消失败，请重试")
		return
	}
	if res.RowsAffected == 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "该预订已取消")
		return
	}

	metrics.BookingsCancelled.Inc()
	util.Success(c, util.Response{"message": "预订已取消"})
}
