package field

// Field один член схемы. После создания не изменяется и
// разделяется по ссылке между всеми схемами, где он встречается.
type Field struct {
	name    string
	typ     *FieldType
	decoder FieldDecoder
	model   FieldModel
}

// NewField создаёт поле. nil-модель трактуется как ValueModel.
func NewField(name string, typ *FieldType, decoder FieldDecoder, model FieldModel) *Field {
	if model == nil {
		model = ValueModel{}
	}
	return &Field{
		name:    name,
		typ:     typ,
		decoder: decoder,
		model:   model,
	}
}

// Name имя свойства (var_name)
func (f *Field) Name() string { return f.name }

// Type тип поля
func (f *Field) Type() *FieldType { return f.typ }

// Decoder собственное правило декодирования поля
func (f *Field) Decoder() FieldDecoder { return f.decoder }

// Model модель продолжения пути
func (f *Field) Model() FieldModel { return f.model }

// elementType тип элемента для ArrayVector: generic-параметр, если он есть
func (f *Field) elementType() *FieldType {
	if g := f.typ.Generic(); g != nil {
		return g
	}
	return f.typ
}
