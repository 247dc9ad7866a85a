// Etebase - Encrypt Everything
// Copyright (C) 2025 EteSync
//
// This file is part of Etebase.
//
// Etebase is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Etebase is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Etebase. If not, see <https://www.gnu.org/licenses/>.

package transport

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/etesync/etebase-go/codec"
	"github.com/etesync/etebase-go/errs"
	"github.com/etesync/etebase-go/internal/logger"
	"github.com/etesync/etebase-go/wire"
)

const (
	wsDialTimeout = 30 * time.Second
	wsReadTimeout = 5 * time.Minute
)

// ItemListCallback receives one change notification per item-list frame.
// The stoken inside each frame resumes the subscription after reconnect.
type ItemListCallback func(list *wire.ItemList)

// Subscription is a live change feed for one collection.
type Subscription struct {
	conn   *websocket.Conn
	log    logger.Logger
	closed sync.Once
	done   chan struct{}
}

// Subscribe opens the change feed for a collection. It first requests a
// short-lived ticket over HTTP, then dials the socket and replays changes
// from stoken. The callback runs on the reader goroutine; the subscription
// stops when ctx is canceled, Close is called, or the socket fails.
func Subscribe(ctx context.Context, c *Client, collectionUID string, stoken *string, cb ItemListCallback) (*Subscription, error) {
	var ticket wire.WebSocketTicket
	err := c.Post(ctx, "/ws/", nil, &wire.WebSocketTicketRequest{Collection: collectionUID}, &ticket)
	if err != nil {
		return nil, err
	}

	wsURL := *c.baseURL
	switch wsURL.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}
	wsURL.Path = fmt.Sprintf("/ws/v1/%s/", url.PathEscape(ticket.Ticket))

	dialer := &websocket.Dialer{HandshakeTimeout: wsDialTimeout}
	conn, resp, err := dialer.DialContext(ctx, wsURL.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, mapStatus(resp.StatusCode, nil)
		}
		return nil, &errs.NetworkError{Err: err}
	}

	sub := &Subscription{
		conn: conn,
		log:  c.log,
		done: make(chan struct{}),
	}

	if stoken != nil {
		hello, err := codec.MsgpackEncode(map[string]string{"stoken": *stoken})
		if err != nil {
			conn.Close()
			return nil, err
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, hello); err != nil {
			conn.Close()
			return nil, &errs.NetworkError{Err: err}
		}
	}

	go sub.readLoop(cb)
	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()
	return sub, nil
}

// Close tears down the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.closed.Do(func() {
		close(s.done)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.conn.Close()
	})
}

// Done is closed once the subscription has stopped.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) readLoop(cb ItemListCallback) {
	defer s.Close()
	for {
		_ = s.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
			default:
				s.log.Warn("subscription closed", logger.Err(err))
			}
			return
		}
		var list wire.ItemList
		if err := codec.MsgpackDecode(data, &list); err != nil {
			s.log.Warn("subscription frame decode failed", logger.Err(err))
			continue
		}
		cb(&list)
	}
}
