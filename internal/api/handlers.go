package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"shareit/internal/export"
	"shareit/internal/models"
	"shareit/internal/service"
)

const userIDHeader = "X-Sharer-User-Id"

type bookingRequest struct {
	ItemID int64     `json:"itemId"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

type bookingResponse struct {
	ID       int64     `json:"id"`
	ItemID   int64     `json:"itemId"`
	BookerID int64     `json:"bookerId"`
	Status   string    `json:"status"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

type bookingBriefResponse struct {
	ID       int64     `json:"id"`
	BookerID int64     `json:"bookerId"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

type commentRequest struct {
	Text string `json:"text"`
}

type commentResponse struct {
	ID         int64     `json:"id"`
	Text       string    `json:"text"`
	AuthorName string    `json:"authorName"`
	Created    time.Time `json:"created"`
}

type itemRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Available   *bool   `json:"available"`
}

type itemResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
}

type itemDetailsResponse struct {
	itemResponse
	LastBooking *bookingBriefResponse `json:"lastBooking"`
	NextBooking *bookingBriefResponse `json:"nextBooking"`
	Comments    []commentResponse     `json:"comments"`
}

type userRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

type userResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func toBookingResponse(b models.Booking) bookingResponse {
	return bookingResponse{
		ID:       b.ID,
		ItemID:   b.ItemID,
		BookerID: b.BookerID,
		Status:   string(b.Status),
		Start:    b.Start,
		End:      b.End,
	}
}

func toBookingResponses(bookings []models.Booking) []bookingResponse {
	out := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingResponse(b))
	}
	return out
}

func toBrief(b *models.BookingBrief) *bookingBriefResponse {
	if b == nil {
		return nil
	}
	return &bookingBriefResponse{ID: b.ID, BookerID: b.BookerID, Start: b.Start, End: b.End}
}

func toCommentResponse(c models.Comment) commentResponse {
	return commentResponse{ID: c.ID, Text: c.Text, AuthorName: c.AuthorName, Created: c.Created}
}

func toItemResponse(item models.Item) itemResponse {
	return itemResponse{ID: item.ID, Name: item.Name, Description: item.Description, Available: item.Available}
}

func toItemDetailsResponse(d models.ItemDetails) itemDetailsResponse {
	comments := make([]commentResponse, 0, len(d.Comments))
	for _, c := range d.Comments {
		comments = append(comments, toCommentResponse(c))
	}
	return itemDetailsResponse{
		itemResponse: toItemResponse(d.Item),
		LastBooking:  toBrief(d.LastBooking),
		NextBooking:  toBrief(d.NextBooking),
		Comments:     comments,
	}
}

func toUserResponse(u models.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email}
}

// actingUser extracts the caller's id from the sharer header.
func actingUser(r *http.Request) (int64, error) {
	raw := r.Header.Get(userIDHeader)
	if raw == "" {
		return 0, fmt.Errorf("%s header is required", userIDHeader)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s header is not valid", userIDHeader)
	}
	return id, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("id path parameter is not valid")
	}
	return id, nil
}

// pagination reads from/size query parameters, applying configured defaults
// and the size cap. Malformed values are rejected, not defaulted.
func (s *Server) pagination(r *http.Request) (from, size int, err error) {
	size = s.cfg.Booking.DefaultPageSize
	if raw := r.URL.Query().Get("from"); raw != "" {
		from, err = strconv.Atoi(raw)
		if err != nil {
			return 0, 0, fmt.Errorf("from parameter is not valid")
		}
	}
	if raw := r.URL.Query().Get("size"); raw != "" {
		size, err = strconv.Atoi(raw)
		if err != nil {
			return 0, 0, fmt.Errorf("size parameter is not valid")
		}
	}
	if size > s.cfg.Booking.MaxPageSize {
		size = s.cfg.Booking.MaxPageSize
	}
	return from, size, nil
}

func decodeBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

// --- bookings ---

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var body bookingRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	booking, err := s.bookings.Create(r.Context(), userID, body.ItemID, body.Start, body.End)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(*booking))
}

func (s *Server) handleDecideBooking(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	bookingID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	approved, err := strconv.ParseBool(r.URL.Query().Get("approved"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "approved parameter is required")
		return
	}

	booking, err := s.bookings.Decide(r.Context(), userID, bookingID, approved)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(*booking))
}

func (s *Server) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	bookingID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	booking, err := s.bookings.Get(r.Context(), userID, bookingID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(*booking))
}

func (s *Server) handleListBookings(w http.ResponseWriter, r *http.Request) {
	s.listBookings(w, r, service.PerspectiveBooker)
}

func (s *Server) handleListOwnerBookings(w http.ResponseWriter, r *http.Request) {
	s.listBookings(w, r, service.PerspectiveOwner)
}

func (s *Server) listBookings(w http.ResponseWriter, r *http.Request, p service.Perspective) {
	userID, err := actingUser(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	from, size, err := s.pagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	state := r.URL.Query().Get("state")
	if state == "" {
		state = string(service.StateAll)
	}

	bookings, err := s.bookings.List(r.Context(), userID, p, state, from, size)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponses(bookings))
}

// --- items ---

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var body itemRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item := models.Item{}
	if body.Name != nil {
		item.Name = *body.Name
	}
	if body.Description != nil {
		item.Description = *body.Description
	}
	if body.Available != nil {
		item.Available = *body.Available
	}

	created, err := s.items.Create(r.Context(), userID, item)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(*created))
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	itemID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var body itemRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := s.items.Update(r.Context(), userID, itemID, service.ItemPatch{
		Name:        body.Name,
		Description: body.Description,
		Available:   body.Available,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(*item))
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	itemID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	details, err := s.items.Get(r.Context(), userID, itemID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemDetailsResponse(*details))
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	from, size, err := s.pagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	details, err := s.items.ListByOwner(r.Context(), userID, from, size)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	out := make([]itemDetailsResponse, 0, len(details))
	for _, d := range details {
		out = append(out, toItemDetailsResponse(d))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSearchItems(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	from, size, err := s.pagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := s.items.Search(r.Context(), userID, r.URL.Query().Get("text"), from, size)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	out := make([]itemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toItemResponse(item))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	itemID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var body commentRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	comment, err := s.items.AddComment(r.Context(), userID, itemID, body.Text)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCommentResponse(*comment))
}

// --- users ---

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var body userRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user := models.User{}
	if body.Name != nil {
		user.Name = *body.Name
	}
	if body.Email != nil {
		user.Email = *body.Email
	}

	created, err := s.users.Create(r.Context(), user)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(*created))
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.users.Get(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(*user))
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var body userRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.users.Update(r.Context(), userID, service.UserPatch{Name: body.Name, Email: body.Email})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(*user))
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.users.Delete(r.Context(), userID); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// --- reports ---

// handleBookingsReport streams an xlsx report of every booking on the acting
// user's items.
func (s *Server) handleBookingsReport(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bookings, err := s.bookings.List(r.Context(), userID, service.PerspectiveOwner,
		string(service.StateAll), 0, s.cfg.Booking.MaxPageSize)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	items, err := s.items.ListByOwner(r.Context(), userID, 0, s.cfg.Booking.MaxPageSize)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	itemNames := make(map[int64]string, len(items))
	for _, d := range items {
		itemNames[d.ID] = d.Name
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="bookings.xlsx"`)
	if err := export.WriteBookingsReport(w, bookings, itemNames); err != nil {
		s.logger.Error().Err(err).Msg("bookings report")
	}
}
