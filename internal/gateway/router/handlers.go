package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"userapi/internal/domain"
	gw "userapi/internal/gateway"
	"userapi/internal/platform/telemetry"
)

type handlers struct {
	auth    gw.AuthService
	users   gw.UserService
	metrics *telemetry.Metrics
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var in domain.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		gw.WriteError(w, r, err)
		return
	}
	if err := h.auth.Register(r.Context(), in); err != nil {
		gw.WriteError(w, r, err)
		return
	}
	gw.WriteResponse(w, domain.Response[struct{}]{Status: http.StatusCreated, Message: "created"})
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var in domain.AuthPayload
	if err := decodeJSON(r, &in); err != nil {
		gw.WriteError(w, r, err)
		return
	}
	body, err := h.auth.Login(r.Context(), in)
	if err != nil {
		h.metrics.RecordTokenIssued(r.Context(), "failure")
		gw.WriteError(w, r, err)
		return
	}
	h.metrics.RecordTokenIssued(r.Context(), "success")
	gw.WriteResponse(w, domain.Success(body))
}

func (h *handlers) listUsers(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		gw.WriteError(w, r, err)
		return
	}
	size, err := queryInt(r, "page_size")
	if err != nil {
		gw.WriteError(w, r, err)
		return
	}
	q := r.URL.Query()
	filter := domain.UserFilter{
		ID:       q.Get("id"),
		Username: q.Get("username"),
		Email:    q.Get("email"),
	}
	req := domain.PageRequest{Page: page, PageSize: size}.Normalize()

	users, total, err := h.users.List(r.Context(), filter, req)
	if err != nil {
		gw.WriteError(w, r, err)
		return
	}
	gw.WriteResponse(w, domain.Success(domain.NewPage(users, total, req)))
}

func (h *handlers) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		gw.WriteError(w, r, err)
		return
	}
	gw.WriteResponse(w, domain.Success(u))
}

func (h *handlers) createUser(w http.ResponseWriter, r *http.Request) {
	in, ok := h.userInput(w, r)
	if !ok {
		return
	}
	u, err := h.users.Create(r.Context(), in)
	if err != nil {
		gw.WriteError(w, r, err)
		return
	}
	gw.WriteResponse(w, domain.Created(u))
}

func (h *handlers) updateUser(w http.ResponseWriter, r *http.Request) {
	in, ok := h.userInput(w, r)
	if !ok {
		return
	}
	u, err := h.users.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		gw.WriteError(w, r, err)
		return
	}
	gw.WriteResponse(w, domain.Success(u))
}

func (h *handlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		gw.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// userInput decodes a create/update body and stamps the acting subject.
func (h *handlers) userInput(w http.ResponseWriter, r *http.Request) (domain.UserInput, bool) {
	claims, ok := gw.ClaimsFromContext(r.Context())
	if !ok {
		gw.WriteError(w, r, domain.ErrInvalidToken)
		return domain.UserInput{}, false
	}
	var in domain.UserInput
	if err := decodeJSON(r, &in); err != nil {
		gw.WriteError(w, r, err)
		return domain.UserInput{}, false
	}
	in.ModifiedBy = claims.Subject
	return in, true
}
