package sql

import (
	"testing"

	"github.com/syssam/quarry/dialect"
)

var benchDialects = []string{dialect.SQLite, dialect.MySQL, dialect.Postgres}

func BenchmarkInsert_Small(b *testing.B) {
	row := Row{
		"id": 1, "age": 30, "first_name": "Ariel", "last_name": "Mashraki", "nickname": "a8m",
		"spouse_id": 2, "created_at": "2009-11-10 23:00:00", "updated_at": "2009-11-10 23:00:00",
	}
	for _, d := range benchDialects {
		b.Run(d, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = Dialect(d).Table("users").Insert(row)
			}
		})
	}
}

func BenchmarkInsertBatch(b *testing.B) {
	rows := make([]Row, 100)
	for i := range rows {
		rows[i] = Row{"id": i, "name": "job", "priority": i % 3}
	}
	for _, d := range benchDialects {
		b.Run(d, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = Dialect(d).Table("jobs").InsertBatch(rows)
			}
		})
	}
}

func BenchmarkSelect_Simple(b *testing.B) {
	for _, d := range benchDialects {
		b.Run(d, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = Dialect(d).Select("id", "name", "email").From("users").Get()
			}
		})
	}
}

func BenchmarkSelect_WithJoins(b *testing.B) {
	for _, d := range benchDialects {
		b.Run(d, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = Dialect(d).Select("u.id", "u.name", "p.title").
					From("users u").
					Join("posts p", "p.user_id = u.id", "left").
					Where("u.active", true).
					OrderBy("u.created_at", Desc).
					Limit(10).
					Get()
			}
		})
	}
}

func BenchmarkSelect_Complex(b *testing.B) {
	for _, d := range benchDialects {
		b.Run(d, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = Dialect(d).Table("users").
					Select("country").
					SelectCount("id", "n").
					Where("age >=", 18).
					GroupStart().
					Like("name", "a").
					OrWhereIn("role", "admin", "owner").
					GroupEnd().
					WhereInQuery("id", func(s *Builder) *Builder {
						return s.Select("user_id").From("orders").Where("total >", 100)
					}).
					GroupBy("country").
					Having("COUNT(*) >", 5).
					OrderBy("n", Desc).
					Limit(20, 40).
					Get()
			}
		})
	}
}

func BenchmarkSelect_Cached(b *testing.B) {
	base := Dialect(dialect.Postgres).Table("users")
	base.StartCache().Select("id", "name").Where("active", true).StopCache()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = base.Where("id", i).Get()
	}
}

func BenchmarkUpdateBatch(b *testing.B) {
	rows := make([]Row, 50)
	for i := range rows {
		rows[i] = Row{"id": i, "name": "n", "age": i}
	}
	for _, d := range benchDialects {
		b.Run(d, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = Dialect(d).Table("users").UpdateBatch(rows, "id")
			}
		})
	}
}

func BenchmarkPositional(b *testing.B) {
	stmt, err := Dialect(dialect.Postgres).Table("users").
		Where("a", 1).
		WhereIn("b", 1, 2, 3, 4, 5).
		Where("c", "x").
		Get()
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _, _ = stmt.Positional(Postgres)
	}
}

func BenchmarkPredicates_Compound(b *testing.B) {
	age, name := Field[int]("age"), StringField("name")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = Dialect(dialect.MySQL).Table("users").
			Apply(Or(And(age.GT(18), age.LT(65)), name.HasPrefix("admin"))).
			Get()
	}
}
