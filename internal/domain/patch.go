package domain

import (
	"bytes"
	"encoding/json"
)

// Optional поле частичного обновления. Отличает отсутствующий ключ (Set=false)
// от явного null (Set=true, Value=nil).
type Optional[T any] struct {
	Set   bool
	Value *T
}

func Some[T any](v T) Optional[T] { return Optional[T]{Set: true, Value: &v} }

func Null[T any]() Optional[T] { return Optional[T]{Set: true} }

func (o Optional[T]) IsNull() bool { return o.Set && o.Value == nil }

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// ProductPatch изменяемые поля услуги; все доступны только администратору
type ProductPatch struct {
	Title          Optional[string]   `json:"title"`
	Description    Optional[string]   `json:"description"`
	Price          Optional[int64]    `json:"price"`
	Category       Optional[string]   `json:"category"`
	ProcessingTime Optional[string]   `json:"processingTime"`
	WhatsIncluded  Optional[[]string] `json:"whatsIncluded"`
}

// Apply переносит заданные поля на копию услуги
func (p ProductPatch) Apply(dst Product) Product {
	if p.Title.Set {
		dst.Title = deref(p.Title.Value)
	}
	if p.Description.Set {
		dst.Description = deref(p.Description.Value)
	}
	if p.Price.Set && p.Price.Value != nil {
		dst.Price = *p.Price.Value
	}
	if p.Category.Set {
		dst.Category = deref(p.Category.Value)
	}
	if p.ProcessingTime.Set {
		dst.ProcessingTime = deref(p.ProcessingTime.Value)
	}
	if p.WhatsIncluded.Set {
		if p.WhatsIncluded.Value == nil {
			dst.WhatsIncluded = nil
		} else {
			dst.WhatsIncluded = append([]string(nil), (*p.WhatsIncluded.Value)...)
		}
	}
	return dst
}

// OrderPatch изменяемые поля заказа. Status хранится как сырая строка,
// чтобы недопустимое значение можно было отклонить с 400, а не на этапе разбора JSON.
//
//	status        только admin
//	paymentMethod admin или владелец заказа
//	invoiceUrl    только admin
//
// Ключ с нестроковым значением считается заданным, а его имя попадает в Malformed:
// права проверяются по набору ключей до проверки типов.
type OrderPatch struct {
	Status        Optional[string] `json:"status"`
	PaymentMethod Optional[string] `json:"paymentMethod"`
	InvoiceURL    Optional[string] `json:"invoiceUrl"`

	Malformed []string `json:"-"`
}

func (p *OrderPatch) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*p = OrderPatch{}
	fields := []struct {
		key string
		dst *Optional[string]
	}{
		{"status", &p.Status},
		{"paymentMethod", &p.PaymentMethod},
		{"invoiceUrl", &p.InvoiceURL},
	}
	for _, f := range fields {
		v, ok := raw[f.key]
		if !ok {
			continue
		}
		if err := f.dst.UnmarshalJSON(v); err != nil {
			*f.dst = Optional[string]{Set: true}
			p.Malformed = append(p.Malformed, f.key)
		}
	}
	return nil
}

func (p OrderPatch) Empty() bool {
	return !p.Status.Set && !p.PaymentMethod.Set && !p.InvoiceURL.Set
}

// Apply переносит заданные поля на копию заказа. Статус должен быть проверен заранее.
func (p OrderPatch) Apply(dst Order) Order {
	if p.Status.Set && p.Status.Value != nil {
		dst.Status = OrderStatus(*p.Status.Value)
	}
	if p.PaymentMethod.Set {
		dst.PaymentMethod = cloneString(p.PaymentMethod.Value)
	}
	if p.InvoiceURL.Set {
		dst.InvoiceURL = cloneString(p.InvoiceURL.Value)
	}
	return dst
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
