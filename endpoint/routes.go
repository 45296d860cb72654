package endpoint

import "fmt"

// Route path constants, relative to the API base URL.
const (
	// Auth routes
	RouteLogin        = "/auth/login/"
	RouteRegister     = "/auth/register/"
	RouteLogout       = "/auth/logout/"
	RouteTokenRefresh = "/auth/token/refresh/"
	RouteProfile      = "/auth/profile/"

	// Listing routes
	RouteListings          = "/listings/"
	RouteCategories        = "/listings/categories/"
	RouteListingFavorites  = "/listings/favorites/"
	RouteListingMyListings = "/listings/my_listings/"

	// Chat routes
	RouteChatRooms        = "/chat/rooms/"
	RouteChatCreateOrGet  = "/chat/rooms/create_or_get/"
	RouteChatSocketPrefix = "/ws/chat/"

	// Notification routes
	RouteNotifications          = "/notifications/"
	RouteNotificationsReadAll   = "/notifications/mark_all_read/"
	RouteNotificationsUnreadCnt = "/notifications/unread_count/"
)

func Listing(id int64) string         { return fmt.Sprintf("/listings/%d/", id) }
func ListingFavorite(id int64) string { return fmt.Sprintf("/listings/%d/favorite/", id) }
func ListingSimilar(id int64) string  { return fmt.Sprintf("/listings/%d/similar/", id) }
func ListingReport(id int64) string   { return fmt.Sprintf("/listings/%d/report/", id) }

func ChatRoom(id int64) string            { return fmt.Sprintf("/chat/rooms/%d/", id) }
func ChatRoomSendMessage(id int64) string { return fmt.Sprintf("/chat/rooms/%d/send_message/", id) }
func ChatRoomMarkRead(id int64) string    { return fmt.Sprintf("/chat/rooms/%d/mark_read/", id) }

// ChatSocket is the push channel path for a room, relative to the websocket base URL.
func ChatSocket(id int64) string { return fmt.Sprintf("%s%d/", RouteChatSocketPrefix, id) }

func NotificationMarkRead(id int64) string { return fmt.Sprintf("/notifications/%d/mark_read/", id) }
