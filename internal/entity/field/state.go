package field

// FieldState дерево декодированных значений сущности, адресуемое слотами FieldPath.
// Узел может одновременно хранить значение (например, длину вектора) и дочерние узлы.
// Синхронизация остаётся на вызывающей стороне.
type FieldState struct {
	value    FieldValue
	hasValue bool
	children []*FieldState
}

// NewFieldState создаёт пустое состояние
func NewFieldState() *FieldState {
	return &FieldState{}
}

// Value возвращает значение узла
func (s *FieldState) Value() (FieldValue, bool) {
	return s.value, s.hasValue
}

// Len количество дочерних слотов (включая незаполненные)
func (s *FieldState) Len() int {
	return len(s.children)
}

// Child возвращает дочерний узел i или nil
func (s *FieldState) Child(i int) *FieldState {
	if i < 0 || i >= len(s.children) {
		return nil
	}
	return s.children[i]
}

// Node возвращает узел по пути или nil, если он не заполнен
func (s *FieldState) Node(fp FieldPath) *FieldState {
	node := s
	for i := 0; i <= fp.last; i++ {
		node = node.Child(int(fp.path[i]))
		if node == nil {
			return nil
		}
	}
	return node
}

// Get возвращает значение по пути
func (s *FieldState) Get(fp FieldPath) (FieldValue, bool) {
	node := s.Node(fp)
	if node == nil {
		return nil, false
	}
	return node.Value()
}

// Set записывает значение по пути, создавая промежуточные узлы
func (s *FieldState) Set(fp FieldPath, v FieldValue) {
	node := s
	for i := 0; i <= fp.last; i++ {
		idx := int(fp.path[i])
		if idx >= len(node.children) {
			grown := make([]*FieldState, idx+1)
			copy(grown, node.children)
			node.children = grown
		}
		if node.children[idx] == nil {
			node.children[idx] = &FieldState{}
		}
		node = node.children[idx]
	}
	node.value, node.hasValue = v, true
}

// Truncate обрезает дочерние узлы по пути до n элементов (уменьшение длины вектора)
func (s *FieldState) Truncate(fp FieldPath, n int) {
	node := s.Node(fp)
	if node == nil || n < 0 || n >= len(node.children) {
		return
	}
	for i := n; i < len(node.children); i++ {
		node.children[i] = nil
	}
	node.children = node.children[:n]
}
