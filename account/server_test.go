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

package account

// An in-memory server implementing just enough of the protocol for the
// tests: challenge/signature auth, collections with per-user wrapped keys,
// item batches with etag conflicts, revision history, paging, chunk storage
// and invitations. Of the client's code it uses only the codec and wire
// packages; conflicts and paging are computed from the wire shapes alone.

import (
	"crypto/ed25519"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/etesync/etebase-go/codec"
	"github.com/etesync/etebase-go/wire"
)

type fakeUser struct {
	user        wire.User
	salt        []byte
	loginPubkey []byte
	pubkey      []byte
	content     []byte
	challenge   []byte
}

type fakeMembership struct {
	collectionKey  []byte
	collectionType []byte
	accessLevel    int
}

type fakeItem struct {
	current  wire.Item
	// history holds superseded revisions, oldest first.
	history []wire.Revision
}

type fakeCollection struct {
	uid       string
	item      *fakeItem
	members   map[string]*fakeMembership
	removed   map[string]int
	itemOrder []string
	items     map[string]*fakeItem
	chunks    map[string][]byte
	stoken    int
}

type fakeServer struct {
	mu          sync.Mutex
	users       map[string]*fakeUser
	tokens      map[string]string
	collections map[string]*fakeCollection
	colOrder    []string
	invitations map[string]*wire.SignedInvitation
	invFrom     map[string]string
	clock       int
	nextToken   int
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		users:       make(map[string]*fakeUser),
		tokens:      make(map[string]string),
		collections: make(map[string]*fakeCollection),
		invitations: make(map[string]*wire.SignedInvitation),
		invFrom:     make(map[string]string),
	}
}

func (s *fakeServer) start(t interface{ Cleanup(func()) }) *httptest.Server {
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return srv
}

func (s *fakeServer) tick() string {
	s.clock++
	return strconv.Itoa(s.clock)
}

func writeMsg(w http.ResponseWriter, status int, v interface{}) {
	data, err := codec.MsgpackEncode(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/msgpack")
	w.WriteHeader(status)
	w.Write(data)
}

func writeErr(w http.ResponseWriter, status int, code, detail string) {
	writeMsg(w, status, &wire.ErrorBody{Code: code, Detail: detail})
}

func readMsg(r *http.Request, v interface{}) error {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	return codec.MsgpackDecode(data, v)
}

func (s *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/api/v1")
	parts := strings.FieldsFunc(path, func(c rune) bool { return c == '/' })
	if len(parts) == 0 {
		writeErr(w, http.StatusNotFound, "not_found", "no route")
		return
	}

	if parts[0] == "authentication" {
		s.handleAuth(w, r, parts)
		return
	}

	username, ok := s.tokens[strings.TrimPrefix(r.Header.Get("Authorization"), "Token ")]
	if !ok {
		writeErr(w, http.StatusUnauthorized, "token_expired", "bad token")
		return
	}

	switch parts[0] {
	case "collection":
		s.handleCollection(w, r, parts, username)
	case "invitation":
		s.handleInvitation(w, r, parts, username)
	default:
		writeErr(w, http.StatusNotFound, "not_found", "no route")
	}
}

func (s *fakeServer) handleAuth(w http.ResponseWriter, r *http.Request, parts []string) {
	switch parts[1] {
	case "signup":
		var body wire.SignupBody
		if err := readMsg(r, &body); err != nil {
			writeErr(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		if _, exists := s.users[body.User.Username]; exists {
			writeErr(w, http.StatusConflict, "user_exists", "taken")
			return
		}
		s.users[body.User.Username] = &fakeUser{
			user:        body.User,
			salt:        body.Salt,
			loginPubkey: body.LoginPubkey,
			pubkey:      body.Pubkey,
			content:     body.EncryptedContent,
		}
		s.loginOK(w, body.User.Username)

	case "login_challenge":
		var body wire.LoginChallengeRequest
		if err := readMsg(r, &body); err != nil {
			writeErr(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		u, ok := s.users[body.Username]
		if !ok {
			writeErr(w, http.StatusUnauthorized, "user_not_init", "no such user")
			return
		}
		u.challenge = []byte("challenge-" + s.tick())
		writeMsg(w, http.StatusOK, &wire.LoginChallenge{
			Username:  body.Username,
			Challenge: u.challenge,
			Salt:      u.salt,
			Version:   1,
		})

	case "login":
		inner, u, ok := s.verifySigned(w, r)
		if !ok {
			return
		}
		if inner.Action != "login" {
			writeErr(w, http.StatusBadRequest, "bad_action", inner.Action)
			return
		}
		s.loginOK(w, u.user.Username)

	case "change_password":
		inner, u, ok := s.verifySigned(w, r)
		if !ok {
			return
		}
		if inner.Action != "changePassword" {
			writeErr(w, http.StatusBadRequest, "bad_action", inner.Action)
			return
		}
		u.loginPubkey = inner.LoginPubkey
		u.content = inner.EncryptedContent
		w.WriteHeader(http.StatusOK)

	case "logout":
		w.WriteHeader(http.StatusOK)

	default:
		writeErr(w, http.StatusNotFound, "not_found", "no route")
	}
}

// verifySigned checks a signed login/change_password body against the
// stored login pubkey and outstanding challenge.
func (s *fakeServer) verifySigned(w http.ResponseWriter, r *http.Request) (*wire.LoginResponseStruct, *fakeUser, bool) {
	var body wire.LoginBody
	if err := readMsg(r, &body); err != nil {
		writeErr(w, http.StatusBadRequest, "bad_request", err.Error())
		return nil, nil, false
	}
	var inner wire.LoginResponseStruct
	if err := codec.MsgpackDecode(body.Response, &inner); err != nil {
		writeErr(w, http.StatusBadRequest, "bad_request", err.Error())
		return nil, nil, false
	}
	u, ok := s.users[inner.Username]
	if !ok {
		writeErr(w, http.StatusUnauthorized, "user_not_init", "no such user")
		return nil, nil, false
	}
	if u.challenge == nil || string(u.challenge) != string(inner.Challenge) {
		writeErr(w, http.StatusUnauthorized, "login_bad_signature", "stale challenge")
		return nil, nil, false
	}
	if !ed25519.Verify(ed25519.PublicKey(u.loginPubkey), body.Response, body.Signature) {
		writeErr(w, http.StatusUnauthorized, "login_bad_signature", "signature mismatch")
		return nil, nil, false
	}
	u.challenge = nil
	return &inner, u, true
}

func (s *fakeServer) loginOK(w http.ResponseWriter, username string) {
	u := s.users[username]
	s.nextToken++
	token := fmt.Sprintf("token-%s-%d", username, s.nextToken)
	s.tokens[token] = username
	writeMsg(w, http.StatusOK, &wire.LoginResponse{
		Token: token,
		User: wire.LoginUser{
			Username:         u.user.Username,
			Email:            u.user.Email,
			Pubkey:           u.pubkey,
			EncryptedContent: u.content,
		},
	})
}

func (s *fakeServer) colForUser(col *fakeCollection, username string) (wire.Collection, bool) {
	m, ok := col.members[username]
	if !ok {
		return wire.Collection{}, false
	}
	stoken := strconv.Itoa(col.stoken)
	return wire.Collection{
		CollectionKey:  m.collectionKey,
		CollectionType: m.collectionType,
		Item:           withEtag(col.item.current),
		AccessLevel:    m.accessLevel,
		Stoken:         &stoken,
	}, true
}

func withEtag(item wire.Item) wire.Item {
	etag := item.Content.UID
	item.Etag = &etag
	return item
}

func (s *fakeServer) handleCollection(w http.ResponseWriter, r *http.Request, parts []string, username string) {
	// POST /collection/ and /collection/list_multi/
	if len(parts) == 1 || (len(parts) == 2 && parts[1] == "list_multi") {
		if len(parts) == 2 {
			s.listCollections(w, r, username)
			return
		}
		s.createCollection(w, r, username)
		return
	}

	col, ok := s.collections[parts[1]]
	if !ok {
		writeErr(w, http.StatusNotFound, "not_found", "no such collection")
		return
	}
	if _, member := col.members[username]; !member && !(len(parts) >= 3 && parts[2] == "member") {
		writeErr(w, http.StatusForbidden, "no_access", "not a member")
		return
	}

	if len(parts) == 2 {
		out, _ := s.colForUser(col, username)
		writeMsg(w, http.StatusOK, &out)
		return
	}

	switch parts[2] {
	case "item":
		s.handleItems(w, r, parts, col)
	case "member":
		s.handleMembers(w, r, parts, col, username)
	default:
		writeErr(w, http.StatusNotFound, "not_found", "no route")
	}
}

func (s *fakeServer) createCollection(w http.ResponseWriter, r *http.Request, username string) {
	var body wire.Collection
	if err := readMsg(r, &body); err != nil {
		writeErr(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	uid := body.Item.UID
	if _, exists := s.collections[uid]; exists {
		writeErr(w, http.StatusConflict, "exists", "collection exists")
		return
	}
	col := &fakeCollection{
		uid:     uid,
		item:    &fakeItem{current: body.Item},
		members: map[string]*fakeMembership{username: {
			collectionKey:  body.CollectionKey,
			collectionType: body.CollectionType,
			accessLevel:    1,
		}},
		removed: make(map[string]int),
		items:   make(map[string]*fakeItem),
		chunks:  make(map[string][]byte),
	}
	s.clock++
	col.stoken = s.clock
	s.collections[uid] = col
	s.colOrder = append(s.colOrder, uid)
	w.WriteHeader(http.StatusCreated)
}

func (s *fakeServer) listCollections(w http.ResponseWriter, r *http.Request, username string) {
	var body wire.CollectionListRequest
	if err := readMsg(r, &body); err != nil {
		writeErr(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	sinceStoken := 0
	if v := r.URL.Query().Get("stoken"); v != "" {
		sinceStoken, _ = strconv.Atoi(v)
	}

	typeMatch := func(m *fakeMembership) bool {
		if len(body.CollectionTypes) == 0 {
			return true
		}
		for _, t := range body.CollectionTypes {
			if string(t) == string(m.collectionType) {
				return true
			}
		}
		return false
	}

	resp := &wire.CollectionList{Done: true}
	maxStoken := sinceStoken
	for _, uid := range s.colOrder {
		col := s.collections[uid]
		if col.stoken > maxStoken {
			maxStoken = col.stoken
		}
		if at, wasRemoved := col.removed[username]; wasRemoved && at > sinceStoken {
			resp.RemovedMemberships = append(resp.RemovedMemberships, wire.RemovedCollection{UID: uid})
			if at > maxStoken {
				maxStoken = at
			}
			continue
		}
		m, member := col.members[username]
		if !member || !typeMatch(m) || col.stoken <= sinceStoken {
			continue
		}
		out, _ := s.colForUser(col, username)
		resp.Data = append(resp.Data, out)
	}
	stoken := strconv.Itoa(maxStoken)
	resp.Stoken = &stoken
	writeMsg(w, http.StatusOK, resp)
}

func (s *fakeServer) handleItems(w http.ResponseWriter, r *http.Request, parts []string, col *fakeCollection) {
	rest := parts[3:]

	if len(rest) == 0 {
		s.listItems(w, r, col)
		return
	}

	switch rest[0] {
	case "batch", "transaction":
		s.uploadItems(w, r, col, rest[0] == "transaction")
		return
	case "fetch_updates":
		s.fetchUpdates(w, r, col)
		return
	}

	itemUID := rest[0]
	lookup := func() *fakeItem {
		if itemUID == col.uid {
			return col.item
		}
		return col.items[itemUID]
	}
	item := lookup()
	if item == nil {
		writeErr(w, http.StatusNotFound, "not_found", "no such item")
		return
	}

	if len(rest) == 1 {
		writeMsg(w, http.StatusOK, withEtag(item.current))
		return
	}

	switch rest[1] {
	case "revision":
		s.listRevisions(w, r, item)
	case "chunk":
		s.handleChunk(w, r, col, rest[2])
	default:
		writeErr(w, http.StatusNotFound, "not_found", "no route")
	}
}

func (s *fakeServer) uploadItems(w http.ResponseWriter, r *http.Request, col *fakeCollection, transaction bool) {
	var body wire.ItemBatch
	if err := readMsg(r, &body); err != nil {
		writeErr(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	if v := r.URL.Query().Get("stoken"); v != "" {
		since, _ := strconv.Atoi(v)
		if col.stoken > since {
			writeErr(w, http.StatusConflict, "stale_stoken", "stoken out of date")
			return
		}
	}

	current := func(uid string) *fakeItem {
		if uid == col.uid {
			return col.item
		}
		return col.items[uid]
	}

	stale := func(uid string, etag *string) bool {
		existing := current(uid)
		if existing == nil {
			return etag != nil
		}
		return etag == nil || *etag != existing.current.Content.UID
	}

	for _, dep := range body.Deps {
		if stale(dep.UID, dep.Etag) {
			writeErr(w, http.StatusConflict, "stale_etag", "dependency out of date")
			return
		}
	}
	// Item etags are validated in both modes; transaction additionally runs
	// all-or-nothing, which the single-pass check above already gives us.
	_ = transaction
	for _, in := range body.Items {
		if stale(in.UID, in.Etag) {
			writeErr(w, http.StatusConflict, "stale_etag", "item out of date")
			return
		}
	}

	for _, in := range body.Items {
		existing := current(in.UID)
		stored := in
		stored.Etag = nil
		if existing == nil {
			col.items[in.UID] = &fakeItem{current: stored}
			col.itemOrder = append(col.itemOrder, in.UID)
		} else {
			existing.history = append(existing.history, existing.current.Content)
			existing.current = stored
		}
		// Retain chunk ciphertexts server-side.
		for _, chunk := range in.Content.Chunks {
			if chunk.Cipher != nil {
				col.chunks[chunk.MAC] = chunk.Cipher
			}
		}
	}
	s.clock++
	col.stoken = s.clock
	w.WriteHeader(http.StatusOK)
}

func (s *fakeServer) listItems(w http.ResponseWriter, r *http.Request, col *fakeCollection) {
	q := r.URL.Query()
	limit := len(col.itemOrder) + 1
	if v := q.Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	start := 0
	if iter := q.Get("iterator"); iter != "" {
		for i, uid := range col.itemOrder {
			if uid == iter {
				start = i + 1
				break
			}
		}
	}
	prefetchLight := q.Get("prefetch") == "medium"

	resp := &wire.ItemList{Done: true}
	for i := start; i < len(col.itemOrder); i++ {
		if len(resp.Data) == limit {
			resp.Done = false
			break
		}
		item := withEtag(col.items[col.itemOrder[i]].current)
		if prefetchLight {
			item.Content = stripChunks(item.Content)
		}
		resp.Data = append(resp.Data, item)
	}
	if n := len(resp.Data); n > 0 {
		iter := resp.Data[n-1].UID
		resp.Iterator = &iter
	}
	stoken := strconv.Itoa(col.stoken)
	resp.Stoken = &stoken
	writeMsg(w, http.StatusOK, resp)
}

func stripChunks(rev wire.Revision) wire.Revision {
	chunks := make([]wire.Chunk, len(rev.Chunks))
	for i, c := range rev.Chunks {
		chunks[i] = wire.Chunk{MAC: c.MAC}
	}
	rev.Chunks = chunks
	return rev
}

func (s *fakeServer) fetchUpdates(w http.ResponseWriter, r *http.Request, col *fakeCollection) {
	var deps []wire.ItemBatchDep
	if err := readMsg(r, &deps); err != nil {
		writeErr(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	resp := &wire.ItemList{Done: true}
	for _, dep := range deps {
		item, ok := col.items[dep.UID]
		if !ok {
			continue
		}
		if dep.Etag != nil && *dep.Etag == item.current.Content.UID {
			continue
		}
		resp.Data = append(resp.Data, withEtag(item.current))
	}
	stoken := strconv.Itoa(col.stoken)
	resp.Stoken = &stoken
	writeMsg(w, http.StatusOK, resp)
}

func (s *fakeServer) listRevisions(w http.ResponseWriter, r *http.Request, item *fakeItem) {
	// Newest first, current revision included; the iterator skips past a
	// revision UID.
	all := make([]wire.Revision, 0, len(item.history)+1)
	all = append(all, item.current.Content)
	for i := len(item.history) - 1; i >= 0; i-- {
		all = append(all, item.history[i])
	}

	q := r.URL.Query()
	start := 0
	if iter := q.Get("iterator"); iter != "" {
		for i, rev := range all {
			if rev.UID == iter {
				start = i + 1
				break
			}
		}
	}
	limit := len(all)
	if v := q.Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	resp := &wire.ItemList{Done: true}
	for i := start; i < len(all); i++ {
		if len(resp.Data) == limit {
			resp.Done = false
			break
		}
		entry := item.current
		entry.Content = all[i]
		etag := all[i].UID
		entry.Etag = &etag
		resp.Data = append(resp.Data, entry)
	}
	if n := len(resp.Data); n > 0 {
		iter := resp.Data[n-1].Content.UID
		resp.Iterator = &iter
	}
	writeMsg(w, http.StatusOK, resp)
}

func (s *fakeServer) handleChunk(w http.ResponseWriter, r *http.Request, col *fakeCollection, mac string) {
	switch r.Method {
	case http.MethodPut:
		if _, exists := col.chunks[mac]; exists {
			writeErr(w, http.StatusConflict, "chunk_exists", "already stored")
			return
		}
		data, _ := io.ReadAll(r.Body)
		col.chunks[mac] = data
		w.WriteHeader(http.StatusCreated)
	case http.MethodGet:
		data, ok := col.chunks[mac]
		if !ok {
			writeErr(w, http.StatusNotFound, "not_found", "no such chunk")
			return
		}
		w.Write(data)
	default:
		writeErr(w, http.StatusNotFound, "not_found", "no route")
	}
}

func (s *fakeServer) handleMembers(w http.ResponseWriter, r *http.Request, parts []string, col *fakeCollection, username string) {
	rest := parts[3:]

	if len(rest) == 1 && rest[0] == "leave" {
		delete(col.members, username)
		s.clock++
		col.removed[username] = s.clock
		w.WriteHeader(http.StatusOK)
		return
	}

	if len(rest) == 0 {
		resp := &wire.MemberList{Done: true}
		for name, m := range col.members {
			resp.Data = append(resp.Data, wire.Member{Username: name, AccessLevel: m.accessLevel})
		}
		writeMsg(w, http.StatusOK, resp)
		return
	}

	target := rest[0]
	switch r.Method {
	case http.MethodDelete:
		delete(col.members, target)
		s.clock++
		col.removed[target] = s.clock
		w.WriteHeader(http.StatusOK)
	case http.MethodPatch:
		var patch wire.MemberPatch
		if err := readMsg(r, &patch); err != nil {
			writeErr(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		m, ok := col.members[target]
		if !ok {
			writeErr(w, http.StatusNotFound, "not_found", "no such member")
			return
		}
		m.accessLevel = patch.AccessLevel
		w.WriteHeader(http.StatusOK)
	default:
		writeErr(w, http.StatusNotFound, "not_found", "no route")
	}
}

func (s *fakeServer) handleInvitation(w http.ResponseWriter, r *http.Request, parts []string, username string) {
	rest := parts[1:]
	if len(rest) == 0 {
		writeErr(w, http.StatusNotFound, "not_found", "no route")
		return
	}
	direction := rest[0]

	if len(rest) == 2 && rest[1] == "fetch_user_profile" {
		target, ok := s.users[r.URL.Query().Get("username")]
		if !ok {
			writeErr(w, http.StatusNotFound, "not_found", "no such user")
			return
		}
		writeMsg(w, http.StatusOK, &wire.UserProfile{Pubkey: target.pubkey})
		return
	}

	switch {
	case len(rest) == 1 && r.Method == http.MethodPost && direction == "outgoing":
		var inv wire.SignedInvitation
		if err := readMsg(r, &inv); err != nil {
			writeErr(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		s.invitations[inv.UID] = &inv
		s.invFrom[inv.UID] = username
		w.WriteHeader(http.StatusCreated)

	case len(rest) == 1 && r.Method == http.MethodGet:
		resp := &wire.InvitationList{Done: true}
		for uid, inv := range s.invitations {
			from := s.invFrom[uid]
			mine := (direction == "incoming" && inv.Username == username) ||
				(direction == "outgoing" && from == username)
			if !mine {
				continue
			}
			out := *inv
			out.FromUsername = from
			out.FromPubkey = s.users[from].pubkey
			resp.Data = append(resp.Data, out)
		}
		writeMsg(w, http.StatusOK, resp)

	case len(rest) == 3 && rest[2] == "accept" && direction == "incoming":
		inv, ok := s.invitations[rest[1]]
		if !ok || inv.Username != username {
			writeErr(w, http.StatusNotFound, "not_found", "no such invitation")
			return
		}
		var accept wire.InvitationAccept
		if err := readMsg(r, &accept); err != nil {
			writeErr(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		col, ok := s.collections[inv.Collection]
		if !ok {
			writeErr(w, http.StatusNotFound, "not_found", "no such collection")
			return
		}
		col.members[username] = &fakeMembership{
			collectionKey:  accept.EncryptionKey,
			collectionType: accept.CollectionType,
			accessLevel:    inv.AccessLevel,
		}
		delete(col.removed, username)
		s.clock++
		col.stoken = s.clock
		delete(s.invitations, rest[1])
		w.WriteHeader(http.StatusOK)

	case len(rest) == 2 && r.Method == http.MethodDelete:
		delete(s.invitations, rest[1])
		w.WriteHeader(http.StatusOK)

	default:
		writeErr(w, http.StatusNotFound, "not_found", "no route")
	}
}
