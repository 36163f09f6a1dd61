package tensor

// Cat concatenates tensors along the specified dimension.
// All tensors must have the same shape except in the concatenation dimension.
//
// Example:
//
//	a := tensor.Zeros[float32](Shape{2, 3}, backend)
//	b := tensor.Ones[float32](Shape{4, 3}, backend)
//	c := tensor.Cat([]*Tensor[float32, B]{a, b}, 0) // Shape: [6, 3]
func Cat[T DType, B Backend](tensors []*Tensor[T, B], dim int) *Tensor[T, B] {
	if len(tensors) == 0 {
		panic("Cat requires at least one tensor")
	}
	raws := make([]*RawTensor, len(tensors))
	for i, t := range tensors {
		raws[i] = t.raw
	}
	backend := tensors[0].backend
	result := backend.Cat(raws, dim)
	return New[T, B](result, backend)
}

// Chunk splits the tensor into n equal parts along the specified dimension.
// Panics if the dimension size is not divisible by n.
func (t *Tensor[T, B]) Chunk(n int, dim int) []*Tensor[T, B] {
	raws := t.backend.Chunk(t.raw, n, dim)
	results := make([]*Tensor[T, B], len(raws))
	for i, raw := range raws {
		results[i] = New[T, B](raw, t.backend)
	}
	return results
}

// Unsqueeze inserts a dimension of size 1 at the specified position.
// Supports negative indexing (-1 appends at the end).
func (t *Tensor[T, B]) Unsqueeze(dim int) *Tensor[T, B] {
	result := t.backend.Unsqueeze(t.raw, dim)
	return New[T, B](result, t.backend)
}

// Squeeze removes a dimension of size 1 at the specified position.
// Panics if the dimension does not have size 1.
func (t *Tensor[T, B]) Squeeze(dim int) *Tensor[T, B] {
	result := t.backend.Squeeze(t.raw, dim)
	return New[T, B](result, t.backend)
}
