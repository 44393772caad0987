// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package module

import (
	"errors"

	"github.com/SnellerInc/tql/tensor"
	"github.com/SnellerInc/tql/units"
)

var (
	// ErrAlreadyRegistered is returned when a tensor
	// name or a transform key is registered twice.
	// It is the same error the units package returns
	// for duplicate units and axes.
	ErrAlreadyRegistered = units.ErrAlreadyRegistered
	// ErrUsageConflict is returned from CastVariable
	// when a free variable is used with a different
	// axis or grammatical number than it was first.
	ErrUsageConflict = errors.New("variable usage conflict")
	// ErrUnknownTensor is returned when a tensor
	// name is not registered.
	ErrUnknownTensor = errors.New("unknown tensor")
	// ErrInvalidTensor is returned when a tensor
	// name was defined by a script but its
	// definition failed to type-check.
	ErrInvalidTensor = errors.New("ill-typed tensor")
	// ErrUnbound is returned from Query when a
	// free variable the tensor depends on has
	// no binding.
	ErrUnbound = tensor.ErrUnbound
	// ErrInvalidTransform is returned from
	// RegisterTransform for malformed transforms.
	ErrInvalidTransform = errors.New("invalid transform")
)
