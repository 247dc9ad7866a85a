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
	"net/url"
	"strconv"
)

// PrefetchOption controls how much of each item a listing carries.
type PrefetchOption string

const (
	// PrefetchAuto transfers full revisions including chunk ciphertexts.
	PrefetchAuto PrefetchOption = "auto"
	// PrefetchMedium omits chunk ciphertexts; content must be downloaded
	// separately and surfaces as MissingContentError until then.
	PrefetchMedium PrefetchOption = "medium"
)

// FetchOptions are the query parameters recognized across list and fetch
// operations. The zero value requests server defaults.
type FetchOptions struct {
	Stoken         *string
	Iterator       *string
	Limit          int
	WithCollection bool
	Prefetch       PrefetchOption
}

// Query renders the options as URL query values. A nil receiver renders
// nothing.
func (o *FetchOptions) Query() url.Values {
	if o == nil {
		return nil
	}
	q := url.Values{}
	if o.Stoken != nil {
		q.Set("stoken", *o.Stoken)
	}
	if o.Iterator != nil {
		q.Set("iterator", *o.Iterator)
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.WithCollection {
		q.Set("withCollection", "true")
	}
	if o.Prefetch != "" {
		q.Set("prefetch", string(o.Prefetch))
	}
	return q
}
