package api_test

import (
	"net/http"
	"testing"

	"github.com/GoCodeAlone/foreman/board"
)

// seedBoard builds a board with one column and returns both IDs.
func (e *env) seedBoard(t *testing.T, name, column string) (int64, int64) {
	t.Helper()
	rr := e.post(t, "/api/boards", `{"name":"`+name+`"}`)
	wantStatus(t, rr, http.StatusCreated)
	boardID := decodeAs[board.Board](t, rr).ID

	rr = e.post(t, "/api/boards/"+itoa(boardID)+"/columns", `{"name":"`+column+`"}`)
	wantStatus(t, rr, http.StatusCreated)
	return boardID, decodeAs[board.StatusColumn](t, rr).ID
}

func TestBoardFlow(t *testing.T) {
	e := newEnv(t)
	boardID, columnID := e.seedBoard(t, "Sprint 12", "Backlog")

	rr := e.post(t, "/api/columns/"+itoa(columnID)+"/tickets", `{"title":"Wire the exporter","assignee":"ada"}`)
	wantStatus(t, rr, http.StatusCreated)
	ticket := decodeAs[board.Ticket](t, rr)
	if ticket.ColumnID != columnID {
		t.Fatalf("ticket column = %d, want %d", ticket.ColumnID, columnID)
	}

	rr = e.post(t, "/api/tickets/"+itoa(ticket.ID)+"/comments", `{"author":"grace","message":"spec attached"}`)
	wantStatus(t, rr, http.StatusCreated)
	comment := decodeAs[board.TicketComment](t, rr)
	if comment.TicketID != ticket.ID {
		t.Fatalf("comment ticket = %d", comment.TicketID)
	}

	rr = e.get(t, "/api/boards/"+itoa(boardID)+"/columns")
	wantStatus(t, rr, http.StatusOK)
	if got := len(decodeAs[[]*board.StatusColumn](t, rr)); got != 1 {
		t.Errorf("expected 1 column, got %d", got)
	}

	rr = e.get(t, "/api/tickets?assignee=ada")
	wantStatus(t, rr, http.StatusOK)
	if got := len(decodeAs[[]*board.Ticket](t, rr)); got != 1 {
		t.Errorf("expected 1 ticket for ada, got %d", got)
	}

	// Deleting the board takes its columns, tickets, and comments with it.
	rr = e.del(t, "/api/boards/"+itoa(boardID))
	wantStatus(t, rr, http.StatusNoContent)
	rr = e.get(t, "/api/tickets/"+itoa(ticket.ID))
	wantStatus(t, rr, http.StatusNotFound)
}

func TestMoveTicket(t *testing.T) {
	e := newEnv(t)
	boardID, backlogID := e.seedBoard(t, "Sprint 13", "Backlog")

	rr := e.post(t, "/api/boards/"+itoa(boardID)+"/columns", `{"name":"Doing"}`)
	wantStatus(t, rr, http.StatusCreated)
	doingID := decodeAs[board.StatusColumn](t, rr).ID

	rr = e.post(t, "/api/columns/"+itoa(backlogID)+"/tickets", `{"title":"Migrate schema"}`)
	wantStatus(t, rr, http.StatusCreated)
	ticketID := decodeAs[board.Ticket](t, rr).ID

	rr = e.post(t, "/api/tickets/"+itoa(ticketID)+"/move", `{"column_id":`+itoa(doingID)+`}`)
	wantStatus(t, rr, http.StatusOK)
	if got := decodeAs[board.Ticket](t, rr).ColumnID; got != doingID {
		t.Errorf("ticket column = %d, want %d", got, doingID)
	}

	// Moves stay within the board.
	_, otherColumn := e.seedBoard(t, "Other board", "Inbox")
	rr = e.post(t, "/api/tickets/"+itoa(ticketID)+"/move", `{"column_id":`+itoa(otherColumn)+`}`)
	wantStatus(t, rr, http.StatusConflict)

	rr = e.get(t, "/api/tickets/"+itoa(ticketID))
	if got := decodeAs[board.Ticket](t, rr).ColumnID; got != doingID {
		t.Errorf("refused move changed the column to %d", got)
	}
}

func TestTicketPatchKeepsColumn(t *testing.T) {
	e := newEnv(t)
	_, columnID := e.seedBoard(t, "Sprint 14", "Backlog")

	rr := e.post(t, "/api/columns/"+itoa(columnID)+"/tickets", `{"title":"Draft docs"}`)
	wantStatus(t, rr, http.StatusCreated)
	ticketID := decodeAs[board.Ticket](t, rr).ID

	rr = e.patch(t, "/api/tickets/"+itoa(ticketID), `{"title":"Draft the docs","column_id":9999}`)
	wantStatus(t, rr, http.StatusOK)
	ticket := decodeAs[board.Ticket](t, rr)
	if ticket.Title != "Draft the docs" {
		t.Errorf("title = %q", ticket.Title)
	}
	if ticket.ColumnID != columnID {
		t.Errorf("patch moved the ticket to column %d", ticket.ColumnID)
	}
}

func TestCreateColumnRequiresBoard(t *testing.T) {
	e := newEnv(t)

	rr := e.post(t, "/api/boards/9999/columns", `{"name":"Orphan"}`)
	wantStatus(t, rr, http.StatusNotFound)
}
