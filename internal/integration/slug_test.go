package integration

import "testing"

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"SAO LUIZ DO PARAITINGA", "sao_luiz_do_paraitinga"},
		{"SÃO LUIZ DO PARAITINGA", "sao_luiz_do_paraitinga"},
		{"INMET_SE_SP_A740_SAO LUIZ DO PARAITINGA_01-01-2019_A_31-12-2019.CSV", "inmet_se_sp_a740_sao_luiz_do_paraitinga_01_01_2019_a_31_12_2019_csv"},
		{"  --weird__ name--  ", "weird_name"},
		{"", ""},
	}

	for _, c := range cases {
		if got := Slugify(c.in); got != c.want {
			t.Errorf("Slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeColumn(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"PRECIPITAÇÃO TOTAL, HORÁRIO (mm)", "PRECIPITACAO_TOTAL_HORARIO_MM"},
		{"TEMPERATURA DO AR - BULBO SECO, HORARIA (°C)", "TEMPERATURA_DO_AR_BULBO_SECO_HORARIA_C"},
		{"Data", "DATA"},
		{"PRESSAO ATMOSFERICA AO NIVEL DA ESTACAO, HORARIA (mB)", "PRESSAO_ATMOSFERICA_AO_NIVEL_DA_ESTACAO_HORARIA_MB"},
	}

	for _, c := range cases {
		if got := NormalizeColumn(c.in); got != c.want {
			t.Errorf("NormalizeColumn(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestMatchesStation(t *testing.T) {
	scraper := NewPortalScraper("", "SAO LUIZ DO PARAITINGA", 0)

	if !scraper.MatchesStation("INMET_SE_SP_A740_SÃO LUIZ DO PARAITINGA_01-01-2019_A_31-12-2019.CSV") {
		t.Error("expected accented filename to match the station slug")
	}
	if scraper.MatchesStation("INMET_SE_SP_A701_SAO PAULO - MIRANTE_01-01-2019_A_31-12-2019.CSV") {
		t.Error("expected a different station not to match")
	}
}
