package field

// FieldModel определяет, как поле продолжает путь.
// Набор вариантов закрыт: ValueModel, ArrayModel, ArrayVectorModel, VectorModel, PointerModel.
// Каждый обход схемы обязан обрабатывать все варианты в type switch.
type FieldModel interface {
	fieldModel()
	String() string
}

// ValueModel лист: путь заканчивается на этом поле
type ValueModel struct{}

// ArrayModel массив фиксированного размера из листов с декодером самого поля.
// Следующий слот пути индекс элемента, после него путь заканчивается.
type ArrayModel struct{}

// ArrayVectorModel массив, элементы которого декодируются иначе, чем само поле
type ArrayVectorModel struct {
	Element FieldDecoder
}

// VectorModel растущий массив структур: слот индекса элемента, затем поля вложенной схемы
type VectorModel struct {
	Serializer *Serializer
}

// PointerModel встроенная структура: переход во вложенную схему без слота под указатель
type PointerModel struct {
	Serializer *Serializer
}

func (ValueModel) fieldModel()       {}
func (ArrayModel) fieldModel()       {}
func (ArrayVectorModel) fieldModel() {}
func (VectorModel) fieldModel()      {}
func (PointerModel) fieldModel()     {}

func (ValueModel) String() string       { return "value" }
func (ArrayModel) String() string       { return "array" }
func (ArrayVectorModel) String() string { return "array-vector" }
func (VectorModel) String() string      { return "vector" }
func (PointerModel) String() string     { return "pointer" }
