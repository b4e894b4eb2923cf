package api

import (
	"net/http"
	"strconv"

	"github.com/GoCodeAlone/foreman/board"
	"github.com/GoCodeAlone/foreman/comms"
	"github.com/GoCodeAlone/foreman/errs"
)

// Board mutations publish lifecycle events but skip the audit trail: the
// trail covers the workforce entities, and the board is a reporting
// surface layered on top of them.

func (h *Handlers) listBoards(w http.ResponseWriter, r *http.Request) {
	boards, err := h.Boards.ListBoards()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if boards == nil {
		boards = []*board.Board{}
	}
	writeJSON(w, http.StatusOK, boards)
}

func (h *Handlers) createBoard(w http.ResponseWriter, r *http.Request) {
	b := board.NewBoard("")
	if err := decode(r, b); err != nil {
		h.fail(w, r, err)
		return
	}
	b.ID = 0
	if err := b.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}

	id, err := h.Boards.CreateBoard(b)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.publish(r, comms.BoardCreate, map[string]any{"board_id": id, "name": b.Name})
	writeJSON(w, http.StatusCreated, b)
}

func (h *Handlers) getBoard(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	b, err := h.Boards.GetBoard(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handlers) updateBoard(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	existing, err := h.Boards.GetBoard(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	updated := *existing
	if err := decode(r, &updated); err != nil {
		h.fail(w, r, err)
		return
	}
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	if err := updated.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.Boards.UpdateBoard(&updated); err != nil {
		h.fail(w, r, err)
		return
	}

	h.publish(r, comms.BoardEdit, map[string]any{"board_id": id, "name": updated.Name})
	writeJSON(w, http.StatusOK, &updated)
}

func (h *Handlers) deleteBoard(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Boards.DeleteBoard(id); err != nil {
		h.fail(w, r, err)
		return
	}

	h.publish(r, comms.BoardDelete, map[string]any{"board_id": id})
	w.WriteHeader(http.StatusNoContent)
}

// --- Column handlers ---

func (h *Handlers) listColumns(w http.ResponseWriter, r *http.Request) {
	boardID, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if _, err := h.Boards.GetBoard(boardID); err != nil {
		h.fail(w, r, err)
		return
	}

	columns, err := h.Boards.ListColumns(boardID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if columns == nil {
		columns = []*board.StatusColumn{}
	}
	writeJSON(w, http.StatusOK, columns)
}

func (h *Handlers) createColumn(w http.ResponseWriter, r *http.Request) {
	boardID, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if _, err := h.Boards.GetBoard(boardID); err != nil {
		h.fail(w, r, err)
		return
	}

	c := board.NewColumn(boardID, "")
	if err := decode(r, c); err != nil {
		h.fail(w, r, err)
		return
	}
	c.ID = 0
	c.BoardID = boardID
	if err := c.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}

	id, err := h.Boards.CreateColumn(c)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.publish(r, comms.ColumnCreate, map[string]any{"column_id": id, "board_id": boardID, "name": c.Name})
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handlers) updateColumn(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	existing, err := h.Boards.GetColumn(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	updated := *existing
	if err := decode(r, &updated); err != nil {
		h.fail(w, r, err)
		return
	}
	updated.ID = existing.ID
	updated.BoardID = existing.BoardID // columns do not move between boards
	updated.CreatedAt = existing.CreatedAt
	if err := updated.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.Boards.UpdateColumn(&updated); err != nil {
		h.fail(w, r, err)
		return
	}

	h.publish(r, comms.ColumnEdit, map[string]any{"column_id": id, "name": updated.Name})
	writeJSON(w, http.StatusOK, &updated)
}

func (h *Handlers) deleteColumn(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Boards.DeleteColumn(id); err != nil {
		h.fail(w, r, err)
		return
	}

	h.publish(r, comms.ColumnDelete, map[string]any{"column_id": id})
	w.WriteHeader(http.StatusNoContent)
}

// --- Ticket handlers ---

func (h *Handlers) listColumnTickets(w http.ResponseWriter, r *http.Request) {
	columnID, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if _, err := h.Boards.GetColumn(columnID); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeTickets(w, r, board.TicketFilter{ColumnID: columnID})
}

func (h *Handlers) listTickets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := board.TicketFilter{Assignee: q.Get("assignee")}
	if id, err := strconv.ParseInt(q.Get("column_id"), 10, 64); err == nil {
		f.ColumnID = id
	}
	f.Limit, f.Offset = pageParams(r)
	h.writeTickets(w, r, f)
}

func (h *Handlers) writeTickets(w http.ResponseWriter, r *http.Request, f board.TicketFilter) {
	tickets, err := h.Boards.ListTickets(f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if tickets == nil {
		tickets = []*board.Ticket{}
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (h *Handlers) createTicket(w http.ResponseWriter, r *http.Request) {
	columnID, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if _, err := h.Boards.GetColumn(columnID); err != nil {
		h.fail(w, r, err)
		return
	}

	t := board.NewTicket(columnID, "")
	if err := decode(r, t); err != nil {
		h.fail(w, r, err)
		return
	}
	t.ID = 0
	t.ColumnID = columnID
	if err := t.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}

	id, err := h.Boards.CreateTicket(t)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.publish(r, comms.TicketCreate, map[string]any{"ticket_id": id, "column_id": columnID, "title": t.Title})
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handlers) getTicket(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	t, err := h.Boards.GetTicket(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handlers) updateTicket(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	existing, err := h.Boards.GetTicket(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	updated := *existing
	if err := decode(r, &updated); err != nil {
		h.fail(w, r, err)
		return
	}
	updated.ID = existing.ID
	updated.ColumnID = existing.ColumnID // movement goes through /move
	updated.CreatedAt = existing.CreatedAt
	if err := updated.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.Boards.UpdateTicket(&updated); err != nil {
		h.fail(w, r, err)
		return
	}

	h.publish(r, comms.TicketEdit, map[string]any{"ticket_id": id})
	writeJSON(w, http.StatusOK, &updated)
}

func (h *Handlers) deleteTicket(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Boards.DeleteTicket(id); err != nil {
		h.fail(w, r, err)
		return
	}

	h.publish(r, comms.TicketDelete, map[string]any{"ticket_id": id})
	w.WriteHeader(http.StatusNoContent)
}

// moveTicket places a ticket in another column, which must belong to the
// same board as the current one.
func (h *Handlers) moveTicket(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var body struct {
		ColumnID int64 `json:"column_id"`
	}
	if err := decode(r, &body); err != nil {
		h.fail(w, r, err)
		return
	}

	t, err := h.Boards.GetTicket(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	from := t.ColumnID
	if body.ColumnID != from {
		current, err := h.Boards.GetColumn(from)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		target, err := h.Boards.GetColumn(body.ColumnID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if target.BoardID != current.BoardID {
			h.fail(w, r, errs.Domain("ticket %d cannot move across boards (%d to %d)", id, current.BoardID, target.BoardID))
			return
		}
		t.MoveTo(body.ColumnID)
		if err := h.Boards.UpdateTicket(t); err != nil {
			h.fail(w, r, err)
			return
		}
	}

	h.publish(r, comms.TicketEdit, map[string]any{"ticket_id": id, "from_column": from, "to_column": t.ColumnID})
	writeJSON(w, http.StatusOK, t)
}

// --- Comment handlers ---

func (h *Handlers) listComments(w http.ResponseWriter, r *http.Request) {
	ticketID, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if _, err := h.Boards.GetTicket(ticketID); err != nil {
		h.fail(w, r, err)
		return
	}

	comments, err := h.Boards.ListComments(ticketID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if comments == nil {
		comments = []*board.TicketComment{}
	}
	writeJSON(w, http.StatusOK, comments)
}

func (h *Handlers) createComment(w http.ResponseWriter, r *http.Request) {
	ticketID, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if _, err := h.Boards.GetTicket(ticketID); err != nil {
		h.fail(w, r, err)
		return
	}

	c := board.NewComment(ticketID, "", "")
	if err := decode(r, c); err != nil {
		h.fail(w, r, err)
		return
	}
	c.ID = 0
	c.TicketID = ticketID
	if err := c.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}

	id, err := h.Boards.CreateComment(c)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.publish(r, comms.CommentCreate, map[string]any{"comment_id": id, "ticket_id": ticketID, "author": c.Author})
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handlers) updateComment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	existing, err := h.Boards.GetComment(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	updated := *existing
	if err := decode(r, &updated); err != nil {
		h.fail(w, r, err)
		return
	}
	updated.ID = existing.ID
	updated.TicketID = existing.TicketID
	updated.CreatedAt = existing.CreatedAt
	if err := updated.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.Boards.UpdateComment(&updated); err != nil {
		h.fail(w, r, err)
		return
	}

	h.publish(r, comms.CommentEdit, map[string]any{"comment_id": id})
	writeJSON(w, http.StatusOK, &updated)
}

func (h *Handlers) deleteComment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Boards.DeleteComment(id); err != nil {
		h.fail(w, r, err)
		return
	}

	h.publish(r, comms.CommentDelete, map[string]any{"comment_id": id})
	w.WriteHeader(http.StatusNoContent)
}
