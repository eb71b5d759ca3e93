package sqlinline

const QInsertUsageLog = `--sql 48e7167e-b14e-4085-b66e-fb6ec392f37f
insert into usage_logs(id, user_id, tool_id, file_size_mb, input_format, output_format, conversion_category, created_at)
values ($1::uuid, $2::uuid, $3::text, $4::double precision, nullif($5::text, ''), nullif($6::text, ''), nullif($7::text, ''), $8::timestamptz);
`

const QCountUsageSince = `--sql 87a0b5da-32d6-45a0-a3b5-8b1d65e05997
select count(*)
from usage_logs
where user_id = $1::uuid
  and created_at >= $2::timestamptz;
`
